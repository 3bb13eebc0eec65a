package webhook

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/sngm3741/formsg-intake/api/internal/infrastructure/formsg"
	"github.com/sngm3741/formsg-intake/api/internal/interfaces/http/common"
	"github.com/sngm3741/formsg-intake/api/internal/submission/application"
	"github.com/sngm3741/formsg-intake/api/internal/submission/domain"
)

const (
	messageUnauthorized   = "Unauthorized"
	messageInvalidBody    = "Invalid request body"
	messageBodyTooLarge   = "Request body too large"
	messageUndecryptable  = "Unable to decrypt submission"
	messageSubmitSuccess  = "Form submitted to database successfully"
	messageSubmitFailure  = "Failed to submit form to database"
	messageMissingAnswerF = "Missing answer for field %s"
)

// submitHandler runs verify, decrypt, extract and persist for one delivery.
// Each stage answers with its own status and nothing is retried.
func (h *Handler) submitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signature, err := h.authenticator.Authenticate(r.Header.Get(formsg.SignatureHeaderName), h.postURI)
		if err != nil {
			h.logger.WithError(err).Warn("webhook signature rejected")
			common.WriteMessage(w, r, http.StatusUnauthorized, messageUnauthorized)
			return
		}
		log := h.logger.WithFields(logrus.Fields{
			"formId":       signature.FormID,
			"submissionId": signature.SubmissionID,
		})

		r.Body = http.MaxBytesReader(w, r.Body, common.MaxWebhookRequestBody)
		var envelope formsg.Envelope
		if err := render.DecodeJSON(r.Body, &envelope); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.WithField("limit", tooLarge.Limit).Warn("webhook body exceeds limit")
				common.WriteMessage(w, r, http.StatusRequestEntityTooLarge, messageBodyTooLarge)
				return
			}
			log.WithError(err).Warn("webhook body could not be parsed")
			common.WriteMessage(w, r, http.StatusBadRequest, messageInvalidBody)
			return
		}
		if !matchesSignature(envelope.Data, signature) {
			log.WithFields(logrus.Fields{
				"bodyFormId":       envelope.Data.FormID,
				"bodySubmissionId": envelope.Data.SubmissionID,
			}).Warn("webhook body does not match signature")
			common.WriteMessage(w, r, http.StatusUnauthorized, messageUnauthorized)
			return
		}

		submission, err := h.decryptor.Decrypt(envelope.Data)
		if err != nil {
			log.WithError(err).Warn("webhook payload could not be decrypted")
			common.WriteMessage(w, r, http.StatusBadRequest, messageUndecryptable)
			return
		}

		record, err := h.commands.Submit(r.Context(), application.SubmitCommand{
			Submission:   submission,
			FormID:       signature.FormID,
			SubmissionID: signature.SubmissionID,
		})
		var missing *domain.MissingFieldError
		switch {
		case errors.As(err, &missing):
			log.WithField("fieldId", missing.FieldID).Warn("submission is missing a configured field")
			common.WriteMessage(w, r, http.StatusUnprocessableEntity, fmt.Sprintf(messageMissingAnswerF, missing.FieldID))
			return
		case err != nil:
			log.WithError(err).Error(messageSubmitFailure)
			common.WriteText(w, r, http.StatusInternalServerError, messageSubmitFailure)
			return
		}

		log.WithField("responseId", record.ID).Info(messageSubmitSuccess)
		common.WriteText(w, r, http.StatusOK, messageSubmitSuccess)
	}
}

// matchesSignature reports whether the ids present in the body are the signed ones.
// Absent ids are accepted; the signed ids are what gets stored.
func matchesSignature(data formsg.EncryptedPayload, signature formsg.SignatureHeader) bool {
	if data.SubmissionID != "" && data.SubmissionID != signature.SubmissionID {
		return false
	}
	if data.FormID != "" && data.FormID != signature.FormID {
		return false
	}
	return true
}
