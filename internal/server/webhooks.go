package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nodebase/engine/internal/store"
	"github.com/nodebase/engine/pkg/api"
	"github.com/nodebase/engine/pkg/log"
)

// filteredHeaders are never forwarded into a run's initial data
var filteredHeaders = map[string]bool{
	"authorization":   true,
	"cookie":          true,
	"set-cookie":      true,
	"x-forwarded-for": true,
}

func (s *Server) handleWebhook(c *gin.Context) {
	id := api.WorkflowID(c.Param("workflowID"))

	if s.cfg.WebhookSecret == "" ||
		c.GetHeader("X-Webhook-Secret") != s.cfg.WebhookSecret {
		errorJSON(c, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	if _, err := s.store.LoadWorkflow(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrWorkflowNotFound) {
			errorJSON(c, http.StatusNotFound, "Workflow not found")
			return
		}
		slog.Error("Workflow load failed",
			log.WorkflowID(id), log.Error(err))
		errorJSON(c, http.StatusInternalServerError,
			"Failed to load workflow")
		return
	}

	var body any
	if c.Request.ContentLength > 0 {
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
			errorJSON(c, http.StatusBadRequest,
				fmt.Sprintf("Invalid JSON: %v", err))
			return
		}
	}

	execID, err := s.engine.Trigger(c.Request.Context(), api.TriggerEvent{
		WorkflowID: id,
		InitialData: api.Context{
			"webhook": map[string]any{
				"body":    body,
				"headers": webhookHeaders(c.Request.Header),
				"query":   webhookQuery(c),
			},
		},
	})
	if err != nil {
		slog.Error("Webhook trigger failed",
			log.WorkflowID(id), log.Error(err))
		errorJSON(c, http.StatusInternalServerError,
			fmt.Sprintf("Failed to trigger workflow: %v", err))
		return
	}

	c.JSON(http.StatusAccepted, api.RunResponse{ExecutionID: execID})
}

func webhookHeaders(h http.Header) map[string]string {
	out := map[string]string{}
	for name, values := range h {
		if filteredHeaders[strings.ToLower(name)] || len(values) == 0 {
			continue
		}
		out[strings.ToLower(name)] = values[0]
	}
	return out
}

func webhookQuery(c *gin.Context) map[string]string {
	out := map[string]string{}
	for name, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}
