package laps

import (
	"fmt"
	"sort"

	"acmonitorbot/pkg/helper"
	"acmonitorbot/pkg/session"
)

// Stats renders the aggregate view: medians first, hotlaps second,
// with the shared truncation policy. Only laps from drivers who have
// driven at least the adaptive floor of laps count: the floor is 10,
// lowered to whatever the most active driver has actually managed.
func Stats(st *session.State, budget int) string {
	floor := lapFloor(st)

	type carEntry struct {
		time   float64
		driver string
	}

	all := []float64{}
	perCar := map[string][]float64{}
	qualifying := map[string]bool{}
	var hotTime float64
	var hotDriver, hotCar string
	hotPerCar := map[string]carEntry{}

	for driver, byCar := range st.Laps {
		for car, rec := range byCar {
			if rec.LapCount < floor {
				continue
			}
			qualifying[driver] = true
			all = append(all, rec.TimeMs)
			perCar[car] = append(perCar[car], rec.TimeMs)
			if hotTime == 0 || rec.TimeMs < hotTime {
				hotTime = rec.TimeMs
				hotDriver = driver
				hotCar = car
			}
			if cur, ok := hotPerCar[car]; !ok || rec.TimeMs < cur.time {
				hotPerCar[car] = carEntry{time: rec.TimeMs, driver: driver}
			}
		}
	}

	if len(all) == 0 {
		return ""
	}

	cars := make([]string, 0, len(perCar))
	for car := range perCar {
		cars = append(cars, car)
	}
	sort.Strings(cars)

	lines := []string{
		fmt.Sprintf("Median %s (%d driver(s), %d+ laps)", helper.FormatLapTime(median(all)), len(qualifying), floor),
	}
	for _, car := range cars {
		lines = append(lines, fmt.Sprintf("Median %s %s", st.CarName(car), helper.FormatLapTime(median(perCar[car]))))
	}
	lines = append(lines, fmt.Sprintf("Hotlap %s %s (%s)", helper.FormatLapTime(hotTime), helper.EscapeMarkup(hotDriver), st.CarName(hotCar)))
	for _, car := range cars {
		e := hotPerCar[car]
		lines = append(lines, fmt.Sprintf("Hotlap %s %s %s", st.CarName(car), helper.FormatLapTime(e.time), helper.EscapeMarkup(e.driver)))
	}

	return helper.FitLines(lines, budget)
}

// lapFloor computes min(10, max over drivers of min(lapCount, 10)).
func lapFloor(st *session.State) int {
	most := 0
	for _, byCar := range st.Laps {
		count := 0
		for _, rec := range byCar {
			if rec.LapCount > count {
				count = rec.LapCount
			}
		}
		if count > 10 {
			count = 10
		}
		if count > most {
			most = count
		}
	}
	if most > 10 {
		most = 10
	}
	return most
}

func median(values []float64) float64 {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
