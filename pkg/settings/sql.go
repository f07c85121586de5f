package settings

import (
	"database/sql"
	"fmt"

	"acmonitorbot/pkg/model"
)

// alert kinds map one-to-one onto integer columns.
var kindColumns = map[string]string{
	model.AlertServerUp:   "up",
	model.AlertServerDown: "down",
	model.AlertOneHour:    "onehour",
	model.AlertQualifying: "qualifying",
}

func buildCreateAlertsTable() string {
	return `CREATE TABLE IF NOT EXISTS alerts (
		chatid TEXT PRIMARY KEY,
		up INTEGER,
		down INTEGER,
		onehour INTEGER,
		qualifying INTEGER);`
}

func buildSelectChatCommand() string {
	return `SELECT up, down, onehour, qualifying FROM alerts WHERE chatid = ?`
}

func scanAlerts(rows *sql.Rows) (Alerts, error) {
	defer rows.Close()

	a := AllDisabled()
	// only can be one row
	if rows.Next() {
		var up, down, onehour, qualifying int
		if err := rows.Scan(&up, &down, &onehour, &qualifying); err != nil {
			return a, err
		}
		a[model.AlertServerUp] = up == 1
		a[model.AlertServerDown] = down == 1
		a[model.AlertOneHour] = onehour == 1
		a[model.AlertQualifying] = qualifying == 1
		return a, nil
	}
	return a, rows.Err()
}

func buildSelectSubscribersCommand(kind string) (string, error) {
	column, ok := kindColumns[kind]
	if !ok {
		return "", fmt.Errorf("unknown alert kind %q", kind)
	}
	return fmt.Sprintf(`SELECT chatid FROM alerts WHERE %s = 1`, column), nil
}

func scanSubscribers(rows *sql.Rows) ([]Subscriber, error) {
	defer rows.Close()

	subs := make([]Subscriber, 0)
	for rows.Next() {
		var chatID string
		if err := rows.Scan(&chatID); err != nil {
			return subs, err
		}
		subs = append(subs, Subscriber{ChatID: chatID})
	}
	return subs, rows.Err()
}

func buildUpsertChatCommand(chatID string, a Alerts) (string, []any) {
	stmt := `INSERT OR REPLACE INTO alerts (chatid, up, down, onehour, qualifying) VALUES (?, ?, ?, ?, ?)`
	return stmt, []any{
		chatID,
		boolInt(a[model.AlertServerUp]),
		boolInt(a[model.AlertServerDown]),
		boolInt(a[model.AlertOneHour]),
		boolInt(a[model.AlertQualifying]),
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
