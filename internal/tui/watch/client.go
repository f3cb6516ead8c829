package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clouddeck/stackd/internal/api"
	"github.com/clouddeck/stackd/internal/stack"
)

// --- Message types ---

type healthMsg api.HealthzResponse

type workspacesMsg []stack.Info

type transitionsMsg api.TransitionsResponse

type tickMsg time.Time

type errMsg error

// --- Commands ---

func get(apiURL, apiKey, path string, out any) error {
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest("GET", apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// fetchHealth queries the unauthenticated /healthz endpoint.
func fetchHealth(apiURL, apiKey string) tea.Msg {
	var h healthMsg
	if err := get(apiURL, apiKey, "/healthz", &h); err != nil {
		return errMsg(err)
	}
	return h
}

// fetchWorkspaces lists workspaces and resolves each one's info record.
func fetchWorkspaces(apiURL, apiKey string) tea.Msg {
	var list api.ListResponse
	if err := get(apiURL, apiKey, "/v1/workspaces", &list); err != nil {
		return errMsg(err)
	}

	infos := make([]stack.Info, 0, len(list.Workspaces))
	for _, name := range list.Workspaces {
		var info stack.Info
		if err := get(apiURL, apiKey, "/v1/workspaces/"+name, &info); err != nil {
			// A workspace can vanish between list and info; skip it.
			continue
		}
		infos = append(infos, info)
	}
	return workspacesMsg(infos)
}

// fetchTransitions polls the transition feed from the since cursor.
func fetchTransitions(apiURL, apiKey string, since int64) tea.Msg {
	var feed transitionsMsg
	path := "/v1/events"
	if since > 0 {
		path += "?since=" + strconv.FormatInt(since, 10)
	}
	if err := get(apiURL, apiKey, path, &feed); err != nil {
		return errMsg(err)
	}
	return feed
}
