package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clouddeck/stackd/internal/api/mocks"
	"github.com/clouddeck/stackd/internal/events"
	"github.com/clouddeck/stackd/internal/stack"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T, stacks StackService, hub *events.Hub) *Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(Config{Listen: "127.0.0.1:0", APIKey: testAPIKey}, stacks, hub, logger)
}

func doRequest(s *Server, method, path string, body []byte, authed bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}
	rec := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthzRequiresNoAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().List().Return([]string{"web", "db"}, nil)

	s := newTestServer(t, mockStacks, nil)
	rec := doRequest(s, http.MethodGet, "/healthz", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Workspaces)
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := newTestServer(t, mocks.NewMockStackService(ctrl), nil)

	rec := doRequest(s, http.MethodGet, "/v1/workspaces", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	wrong := httptest.NewRecorder()
	s.setupRoutes().ServeHTTP(wrong, req)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
}

func TestListWorkspaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().List().Return([]string{"alpha", "beta"}, nil)

	s := newTestServer(t, mockStacks, nil)
	rec := doRequest(s, http.MethodGet, "/v1/workspaces", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"alpha", "beta"}, resp.Workspaces)
}

func TestWorkspaceInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().Info("web").Return(stack.Info{
		Name:   "web",
		State:  stack.StateCreateComplete,
		Status: "complete",
	}, nil)

	s := newTestServer(t, mockStacks, nil)
	rec := doRequest(s, http.MethodGet, "/v1/workspaces/web", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)

	var info stack.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "web", info.Name)
	assert.Equal(t, stack.StateCreateComplete, info.State)
	assert.Equal(t, "complete", info.Status)
}

func TestSaveAccepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().Save("web", gomock.Any(), gomock.Any()).Return(nil)

	s := newTestServer(t, mockStacks, nil)
	body := []byte(`{"template":{"resource":{}},"parameters":{"size":"small"}}`)
	rec := doRequest(s, http.MethodPost, "/v1/workspaces/web", body, true)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp AcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "web", resp.Workspace)
	assert.Equal(t, "in_progress", resp.Status)
}

func TestSaveRejectsBadBodies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := newTestServer(t, mocks.NewMockStackService(ctrl), nil)

	rec := doRequest(s, http.MethodPost, "/v1/workspaces/web", []byte("not json"), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/v1/workspaces/web", []byte(`{"parameters":{}}`), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveBusyMapsToConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().Save("web", gomock.Any(), gomock.Any()).Return(stack.ErrBusy)

	s := newTestServer(t, mockStacks, nil)
	rec := doRequest(s, http.MethodPost, "/v1/workspaces/web", []byte(`{"template":{}}`), true)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDestroyNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().Destroy("ghost").Return(stack.ErrNotFound)

	s := newTestServer(t, mockStacks, nil)
	rec := doRequest(s, http.MethodDelete, "/v1/workspaces/ghost", nil, true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResourcesCommandErrorMapsToBadGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cmdErr := &stack.CommandError{Command: "state list", ExitCode: 1, Stderr: "boom"}
	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().Resources("web").Return(nil, cmdErr)

	s := newTestServer(t, mockStacks, nil)
	rec := doRequest(s, http.MethodGet, "/v1/workspaces/web/resources", nil, true)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "boom")
}

func TestOutputsAndEventsEmptyBodies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().Outputs("web").Return(nil, nil)
	mockStacks.EXPECT().Events("web").Return(nil, nil)

	s := newTestServer(t, mockStacks, nil)

	rec := doRequest(s, http.MethodGet, "/v1/workspaces/web/outputs", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"outputs":{}}`, rec.Body.String())

	rec = doRequest(s, http.MethodGet, "/v1/workspaces/web/events", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[]}`, rec.Body.String())
}

func TestTemplatePassthrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().Template("web").Return(`{"resource":{"null_resource":{}}}`, nil)

	s := newTestServer(t, mockStacks, nil)
	rec := doRequest(s, http.MethodGet, "/v1/workspaces/web/template", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"template":{"resource":{"null_resource":{}}}}`, rec.Body.String())
}

func TestTransitionFeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hub := events.NewHub(16)
	hub.Publish("workspace.state", "web", "create_in_progress", "")
	hub.Publish("workspace.state", "web", "create_complete", "")

	s := newTestServer(t, mocks.NewMockStackService(ctrl), hub)

	rec := doRequest(s, http.MethodGet, "/v1/events", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TransitionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "create_in_progress", resp.Events[0].State)

	// Resume from the cursor; only newer transitions come back.
	hub.Publish("workspace.state", "web", "update_in_progress", "")
	rec = doRequest(s, http.MethodGet, "/v1/events?since="+strconv.FormatInt(resp.LastID, 10), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var next TransitionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	require.Len(t, next.Events, 1)
	assert.Equal(t, "update_in_progress", next.Events[0].State)

	rec = doRequest(s, http.MethodGet, "/v1/events?since=abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownErrorMapsToInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStacks := mocks.NewMockStackService(ctrl)
	mockStacks.EXPECT().Info("web").Return(stack.Info{}, errors.New("disk on fire"))

	s := newTestServer(t, mockStacks, nil)
	rec := doRequest(s, http.MethodGet, "/v1/workspaces/web", nil, true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
