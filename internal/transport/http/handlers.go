package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"mhealth-survey-service/internal/app"
	"mhealth-survey-service/internal/domain"
)

type uploadRequest struct {
	CampaignURN    string           `json:"campaignUrn"`
	SurveyID       string           `json:"surveyId"`
	Client         string           `json:"client"`
	Timestamp      string           `json:"timestamp"`
	EpochMillis    int64            `json:"epochMillis"`
	Timezone       string           `json:"timezone"`
	LaunchContext  string           `json:"launchContext"`
	LocationStatus string           `json:"locationStatus"`
	Location       *domain.Location `json:"location"`
	PrivacyState   string           `json:"privacyState"`
	Responses      []uploadAnswer   `json:"responses"`
}

type uploadAnswer struct {
	PromptID               string           `json:"promptId"`
	RepeatableSetID        string           `json:"repeatableSetId"`
	RepeatableSetIteration *int             `json:"repeatableSetIteration"`
	Value                  any              `json:"value"`
	CustomChoices          domain.ChoiceSet `json:"customChoices"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no authenticated user")
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload payload")
		return
	}

	answers := make([]app.SubmissionAnswer, 0, len(req.Responses))
	for _, a := range req.Responses {
		answers = append(answers, app.SubmissionAnswer{
			PromptID:               a.PromptID,
			RepeatableSetID:        a.RepeatableSetID,
			RepeatableSetIteration: a.RepeatableSetIteration,
			Value:                  a.Value,
			CustomChoices:          a.CustomChoices,
		})
	}

	id, err := h.ingest.Ingest(r.Context(), app.Submission{
		CampaignURN:    req.CampaignURN,
		SurveyID:       req.SurveyID,
		Username:       username,
		Client:         req.Client,
		Timestamp:      req.Timestamp,
		EpochMillis:    req.EpochMillis,
		Timezone:       req.Timezone,
		LaunchContext:  req.LaunchContext,
		LocationStatus: req.LocationStatus,
		Location:       req.Location,
		PrivacyState:   domain.PrivacyState(req.PrivacyState),
		Answers:        answers,
	})
	if err != nil {
		status, message := uploadErrorStatus(err)
		writeError(w, status, message)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"submissionId": id})
}

func uploadErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCampaignNotFound),
		errors.Is(err, domain.ErrSurveyNotFound),
		errors.Is(err, domain.ErrPromptNotFound):
		return http.StatusNotFound, err.Error()
	}
	var vErr *domain.ValidationError
	var sErr *domain.ShapeError
	var dErr *domain.DefinitionError
	if errors.As(err, &vErr) || errors.As(err, &sErr) || errors.As(err, &dErr) ||
		errors.Is(err, domain.ErrUnskippableSkipped) {
		return http.StatusBadRequest, err.Error()
	}
	log.Printf("upload failed: %v", err)
	return http.StatusInternalServerError, "upload failed"
}

func (h *Handler) handleReadResponses(w http.ResponseWriter, r *http.Request) {
	q, err := rowQueryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := h.reader.Read(r.Context(), q)
	if err != nil {
		status, message := readErrorStatus(err)
		writeError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "results": results})
}

func (h *Handler) handleReadBuckets(w http.ResponseWriter, r *http.Request) {
	q, err := rowQueryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	width := app.DefaultBucketWidth
	if raw := r.URL.Query().Get("width"); raw != "" {
		width, err = time.ParseDuration(raw)
		if err != nil || width <= 0 {
			writeError(w, http.StatusBadRequest, "invalid bucket width")
			return
		}
	}
	buckets, err := h.reader.ReadBuckets(r.Context(), q, width)
	if err != nil {
		status, message := readErrorStatus(err)
		writeError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

func rowQueryFromRequest(r *http.Request) (app.RowQuery, error) {
	params := r.URL.Query()
	q := app.RowQuery{
		CampaignURN: params.Get("campaignUrn"),
		SurveyIDs:   params["surveyId"],
		Usernames:   params["username"],
		SharedOnly:  params.Get("sharedOnly") == "true",
	}
	if q.CampaignURN == "" {
		return app.RowQuery{}, errors.New("campaignUrn is required")
	}
	if raw := params.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return app.RowQuery{}, errors.New("invalid start time")
		}
		q.Start = t
	}
	if raw := params.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return app.RowQuery{}, errors.New("invalid end time")
		}
		q.End = t
	}
	return q, nil
}

func readErrorStatus(err error) (int, string) {
	if errors.Is(err, domain.ErrCampaignNotFound) {
		return http.StatusNotFound, err.Error()
	}
	log.Printf("read failed: %v", err)
	return http.StatusInternalServerError, "read failed"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
