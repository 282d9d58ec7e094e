package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodebase/engine/internal/store"
	"github.com/nodebase/engine/pkg/api"
	"github.com/nodebase/engine/pkg/log"
)

func (s *Server) putWorkflow(c *gin.Context) {
	id := api.WorkflowID(c.Param("workflowID"))

	var wf api.Workflow
	if err := c.ShouldBindJSON(&wf); err != nil {
		errorJSON(c, http.StatusBadRequest,
			fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	wf.ID = id

	if err := wf.Validate(); err != nil {
		errorJSON(c, http.StatusBadRequest,
			fmt.Sprintf("Invalid workflow: %v", err))
		return
	}

	if err := s.store.SaveWorkflow(c.Request.Context(), &wf); err != nil {
		slog.Error("Workflow save failed",
			log.WorkflowID(id), log.Error(err))
		errorJSON(c, http.StatusInternalServerError,
			"Failed to save workflow")
		return
	}

	c.JSON(http.StatusOK, &wf)
}

func (s *Server) getWorkflow(c *gin.Context) {
	id := api.WorkflowID(c.Param("workflowID"))

	wf, err := s.store.LoadWorkflow(c.Request.Context(), id)
	if err != nil {
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

	c.JSON(http.StatusOK, wf)
}

func (s *Server) runWorkflow(c *gin.Context) {
	id := api.WorkflowID(c.Param("workflowID"))

	initial := api.Context{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&initial); err != nil {
			errorJSON(c, http.StatusBadRequest,
				fmt.Sprintf("Invalid JSON: %v", err))
			return
		}
	}

	execID, err := s.engine.Trigger(c.Request.Context(), api.TriggerEvent{
		WorkflowID:  id,
		InitialData: initial,
	})
	if err != nil {
		slog.Error("Manual trigger failed",
			log.WorkflowID(id), log.Error(err))
		errorJSON(c, http.StatusInternalServerError,
			fmt.Sprintf("Failed to trigger workflow: %v", err))
		return
	}

	c.JSON(http.StatusAccepted, api.RunResponse{ExecutionID: execID})
}

func (s *Server) getExecution(c *gin.Context) {
	id := api.ExecutionID(c.Param("executionID"))

	exec, err := s.store.GetExecution(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrExecutionNotFound) {
			errorJSON(c, http.StatusNotFound, "Execution not found")
			return
		}
		slog.Error("Execution load failed",
			log.ExecutionID(id), log.Error(err))
		errorJSON(c, http.StatusInternalServerError,
			"Failed to load execution")
		return
	}

	c.JSON(http.StatusOK, exec)
}

func (s *Server) listExecutions(c *gin.Context) {
	id := api.WorkflowID(c.Param("workflowID"))

	execs, err := s.store.ListExecutions(c.Request.Context(), id)
	if err != nil {
		slog.Error("Execution list failed",
			log.WorkflowID(id), log.Error(err))
		errorJSON(c, http.StatusInternalServerError,
			"Failed to list executions")
		return
	}

	c.JSON(http.StatusOK, execs)
}

func (s *Server) startSchedule(c *gin.Context) {
	var req api.ScheduleStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest,
			fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	if req.WorkflowID == "" {
		errorJSON(c, http.StatusBadRequest, "workflowId is required")
		return
	}

	if err := s.engine.StartSchedule(
		c.Request.Context(), req.WorkflowID,
	); err != nil {
		if errors.Is(err, store.ErrWorkflowNotFound) {
			errorJSON(c, http.StatusNotFound, "Workflow not found")
			return
		}
		slog.Error("Schedule start failed",
			log.WorkflowID(req.WorkflowID), log.Error(err))
		errorJSON(c, http.StatusInternalServerError,
			fmt.Sprintf("Failed to start schedule: %v", err))
		return
	}

	c.Status(http.StatusOK)
}
