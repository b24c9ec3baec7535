package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Strob0t/Boardroom/internal/adapter/litellm"
	"github.com/Strob0t/Boardroom/internal/adapter/sse"
	"github.com/Strob0t/Boardroom/internal/adapter/ws"
	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/discussion"
	"github.com/Strob0t/Boardroom/internal/domain/persona"
	"github.com/Strob0t/Boardroom/internal/domain/summary"
	"github.com/Strob0t/Boardroom/internal/service"
)

// Archive provides read and profile access to persisted discussion history.
// The live SessionManager answers for running sessions; the archive answers
// for everything that survived a restart. Nil when Postgres is disabled.
type Archive interface {
	GetSession(ctx context.Context, id string) (*discussion.Session, error)
	ListSessions(ctx context.Context, limit int) ([]discussion.Session, error)
	GetSummary(ctx context.Context, sessionID string) (*summary.Summary, error)
	ListClassifications(ctx context.Context, sessionID string) ([]decision.Classification, error)
	GetPreferenceProfile(ctx context.Context, projectID string) (string, error)
	SetPreferenceProfile(ctx context.Context, projectID, profile string) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Discussions *service.DiscussionService
	Sessions    *service.SessionManager
	Tracker     *service.ExecutionTracker
	Profiles    *service.ProfileService
	Registry    *persona.Registry
	Archive     Archive
	Hub         *ws.Hub
	LiteLLM     *litellm.Client
}

// ---------------------------------------------------------------------------
// Discussions
// ---------------------------------------------------------------------------

// StartDiscussion opens an SSE stream and runs a full discussion on it.
// The response is a sequence of `data: {...}` frames; the connection closes
// after the terminal discussion_complete or error frame.
func (h *Handlers) StartDiscussion(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.StartRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Topic, "topic") {
		return
	}
	// Omitting participants means the full roster; the session manager
	// itself rejects an empty set.
	if len(req.Participants) == 0 {
		req.Participants = h.Registry.IDs()
	}

	st, err := sse.New(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	// Errors are reported in-band as error frames; the session outcome is
	// already settled by the time Run returns.
	_ = h.Discussions.Run(r.Context(), req, st)
}

type injectMessageRequest struct {
	Content string `json:"content"`
}

// InjectMessage appends a user message to an active session mid-discussion.
func (h *Handlers) InjectMessage(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[injectMessageRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Content, "content") {
		return
	}
	if err := h.Discussions.InjectUserMessage(r.Context(), id, req.Content); err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// AbandonSession pauses an active session.
func (h *Handlers) AbandonSession(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.Discussions.Abandon(r.Context(), id); err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	sess, err := h.Sessions.Snapshot(id)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ResumeSession reactivates an abandoned session. The next POST /discussions
// round loop for it picks up at the recorded round.
func (h *Handlers) ResumeSession(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.Sessions.Resume(r.Context(), id); err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	sess, err := h.Sessions.Snapshot(id)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// ListSessions returns active sessions first. With Postgres attached the
// archive supplies finished and pre-restart history after them.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	live := h.Sessions.ActiveSessions()
	if h.Archive == nil {
		writeJSON(w, http.StatusOK, live)
		return
	}

	limit := queryInt(r, "limit", 50)
	archived, err := h.Archive.ListSessions(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	seen := make(map[string]bool, len(live))
	out := make([]*discussion.Session, 0, len(live)+len(archived))
	for _, s := range live {
		seen[s.ID] = true
		out = append(out, s)
	}
	for i := range archived {
		if !seen[archived[i].ID] {
			out = append(out, &archived[i])
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSession returns a session with its transcript, preferring live state.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	sess, err := h.Sessions.Snapshot(id)
	if err == nil {
		writeJSON(w, http.StatusOK, sess)
		return
	}
	if !service.IsNotFound(err) {
		writeDomainError(w, err, "session not found")
		return
	}
	if h.Archive == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	sess, err = h.Archive.GetSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GetSessionSummary returns the persisted summary for a completed session.
func (h *Handlers) GetSessionSummary(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeError(w, http.StatusNotFound, "summary not found")
		return
	}
	sum, err := h.Archive.GetSummary(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "summary not found")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ListSessionClassifications returns the risk classifications recorded for a
// session's key decisions.
func (h *Handlers) ListSessionClassifications(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeJSON(w, http.StatusOK, []decision.Classification{})
		return
	}
	cs, err := h.Archive.ListClassifications(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// ---------------------------------------------------------------------------
// Personas
// ---------------------------------------------------------------------------

// ListPersonas returns the configured expert roster.
func (h *Handlers) ListPersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.All())
}

// ---------------------------------------------------------------------------
// Executions
// ---------------------------------------------------------------------------

// ListExecutions returns tracked follow-up tasks. ?status=running|failed
// narrows the view.
func (h *Handlers) ListExecutions(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("status") {
	case "running":
		writeJSON(w, http.StatusOK, h.Tracker.RunningTasks())
	case "failed":
		writeJSON(w, http.StatusOK, h.Tracker.FailedTasks())
	case "":
		writeJSON(w, http.StatusOK, h.Tracker.All())
	default:
		writeError(w, http.StatusBadRequest, "status must be running or failed")
	}
}

// GetExecution returns one follow-up task with its log.
func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tracker.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// StartExecution manually moves a pending task to running. Normally workers
// do this through the queue; the endpoint covers queue-less deployments.
func (h *Handlers) StartExecution(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.Tracker.StartTask(r.Context(), id); err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	task, err := h.Tracker.Get(id)
	if err != nil {
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// AnalyzeExecution produces an LLM post-mortem for a terminal task.
func (h *Handlers) AnalyzeExecution(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.Tracker.AnalyzeExecution(r.Context(), urlParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "execution not found")
			return
		}
		writeDomainError(w, err, "execution not found")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// ---------------------------------------------------------------------------
// Preference profiles
// ---------------------------------------------------------------------------

type profileResponse struct {
	ProjectID string `json:"project_id"`
	Profile   string `json:"profile"`
}

// GetPreferenceProfile returns the stored decision-preference profile for a
// project.
func (h *Handlers) GetPreferenceProfile(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	projectID := urlParam(r, "id")
	profile, err := h.Archive.GetPreferenceProfile(r.Context(), projectID)
	if err != nil {
		writeDomainError(w, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{ProjectID: projectID, Profile: profile})
}

type setProfileRequest struct {
	Profile string `json:"profile"`
}

// SetPreferenceProfile stores a project's decision-preference profile and
// invalidates the prompt-context cache.
func (h *Handlers) SetPreferenceProfile(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeError(w, http.StatusServiceUnavailable, "profile storage requires postgres")
		return
	}
	projectID := urlParam(r, "id")
	req, ok := readJSON[setProfileRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Profile, "profile") {
		return
	}
	if err := h.Archive.SetPreferenceProfile(r.Context(), projectID, req.Profile); err != nil {
		writeInternalError(w, err)
		return
	}
	if h.Profiles != nil {
		h.Profiles.Invalidate(r.Context(), projectID)
	}
	writeJSON(w, http.StatusOK, profileResponse{ProjectID: projectID, Profile: req.Profile})
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

type healthResponse struct {
	Status        string `json:"status"`
	LiteLLM       string `json:"litellm,omitempty"`
	WSConnections int    `json:"ws_connections"`
}

// Health reports service liveness and the reachability of the completion
// proxy. A degraded proxy does not fail the endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.Hub != nil {
		resp.WSConnections = h.Hub.ConnectionCount()
	}
	if h.LiteLLM != nil {
		if ok, _ := h.LiteLLM.Health(r.Context()); ok {
			resp.LiteLLM = "ok"
		} else {
			resp.LiteLLM = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
