package webhook

import (
	"net/http"
	"time"

	"github.com/sngm3741/formsg-intake/api/internal/interfaces/http/common"
	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
)

type responseItem struct {
	ID             string    `json:"id"`
	SubmissionDate time.Time `json:"submissionDate"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	PostalCode     string    `json:"postalCode"`
	FormID         string    `json:"formId,omitempty"`
	SubmissionID   string    `json:"submissionId,omitempty"`
}

func buildResponseItem(record domain.Record) responseItem {
	return responseItem{
		ID:             record.ID,
		SubmissionDate: record.SubmissionDate,
		FirstName:      record.FirstName,
		LastName:       record.LastName,
		PostalCode:     record.PostalCode,
		FormID:         record.FormID,
		SubmissionID:   record.SubmissionID,
	}
}

func (h *Handler) responseListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user, ok := common.UserFromContext(r.Context()); ok {
			h.logger.WithField("user", user.ID).Debug("listing responses")
		}

		records, err := h.queries.List(r.Context())
		if err != nil {
			h.logger.WithError(err).Error("failed to list responses")
			common.WriteMessage(w, r, http.StatusInternalServerError, "Failed to list responses")
			return
		}

		items := make([]responseItem, 0, len(records))
		for _, record := range records {
			items = append(items, buildResponseItem(record))
		}
		common.WriteJSON(w, r, http.StatusOK, items)
	}
}

func (h *Handler) greetingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		common.WriteText(w, r, http.StatusOK, "Hello world")
	}
}
