package servers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"acmonitorbot/pkg/model"
)

// Probe checks liveness with a plain TCP connect to the game server's
// data port.
func Probe(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Client talks to the game server's HTTP status API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// infoResponse is the /INFO document: track id (optionally suffixed
// with "-<layout>") and the configured car directories.
type infoResponse struct {
	Name  string   `json:"name"`
	Track string   `json:"track"`
	Cars  []string `json:"cars"`
}

// entryListResponse is the /JSON| document with per-slot driver info.
type entryListResponse struct {
	Cars []model.Player `json:"Cars"`
}

// FetchDetails pulls the current track, car roster and connected
// player list from the status API.
func (c *Client) FetchDetails(ctx context.Context) (model.ServerDetails, error) {
	var details model.ServerDetails

	var info infoResponse
	if err := c.getJSON(ctx, "/INFO", &info); err != nil {
		return details, errors.Wrap(err, "fetching server info")
	}

	var entries entryListResponse
	if err := c.getJSON(ctx, "/JSON%7C-1", &entries); err != nil {
		return details, errors.Wrap(err, "fetching entry list")
	}

	details.ServerName = info.Name
	details.Track, details.TrackLayout = splitTrack(info.Track)
	details.Cars = info.Cars
	details.Players = entries.Cars
	return details, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, path)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, target)
}

// splitTrack separates "<dir>-<layout>" into its parts. Tracks without
// a layout keep an empty layout string.
func splitTrack(track string) (string, string) {
	if i := strings.Index(track, "-"); i >= 0 {
		return track[:i], track[i+1:]
	}
	return track, ""
}

// ResolvePublicIP asks an external resolver for the address players
// should connect to. The result is plain text.
func ResolvePublicIP(ctx context.Context, resolverURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolverURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
