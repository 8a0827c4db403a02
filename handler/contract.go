package handler

import (
	"errors"
	"net/http"

	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"github.com/SachinGupta0206/saas-contracts-dashboard/pkg/logger"
	"github.com/SachinGupta0206/saas-contracts-dashboard/service"
	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	store    *service.ContractsStore
	pageSize int
}

func NewContractHandler(store *service.ContractsStore, pageSize int) *ContractHandler {
	return &ContractHandler{store: store, pageSize: pageSize}
}

// contractRow is a list entry with its badge colours resolved
type contractRow struct {
	model.ContractSummary
	StatusTone model.Tone `json:"status_tone"`
	RiskTone   model.Tone `json:"risk_tone"`
}

// List refreshes the collection and returns the current filtered page
func (h *ContractHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if _, err := h.store.ListContracts(ctx); err != nil {
		var fetchErr *service.FetchError
		if errors.As(err, &fetchErr) {
			logger.Warn(ctx, "contract list unavailable", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":     fetchErr.Error(),
				"contracts": len(h.store.Snapshot().Contracts),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items, total, page := h.store.Page(h.pageSize)
	rows := make([]contractRow, len(items))
	for i, item := range items {
		rows[i] = contractRow{
			ContractSummary: item,
			StatusTone:      item.Status.Tone(),
			RiskTone:        item.Risk.Tone(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"contracts": rows,
		"total":     total,
		"page":      page,
		"page_size": h.pageSize,
		"filters":   h.store.Snapshot().Filters,
	})
}

// SetFilters merges a partial filter update
func (h *ContractHandler) SetFilters(c *gin.Context) {
	var patch model.FilterPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"filters": h.store.SetFilters(patch)})
}

type pageRequest struct {
	Page *int `json:"page" binding:"required"`
}

// SetPage stores the requested page number as given
func (h *ContractHandler) SetPage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	h.store.SetPage(*req.Page)
	c.JSON(http.StatusOK, gin.H{"page": *req.Page})
}

type clauseView struct {
	model.Clause
	Percent int        `json:"percent"`
	Tone    model.Tone `json:"tone"`
}

type evidenceView struct {
	model.Evidence
	Percent int `json:"percent"`
}

type insightView struct {
	model.Insight
	Tone model.Tone `json:"tone"`
}

// Get returns one contract with its clauses, insights and evidence
func (h *ContractHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	detail, found, err := h.store.GetContractDetail(ctx, id)
	if err != nil {
		logger.Warn(ctx, "contract detail unavailable", "contract_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	clauses := make([]clauseView, len(detail.Clauses))
	for i, cl := range detail.Clauses {
		clauses[i] = clauseView{Clause: cl, Percent: model.Percent(cl.Confidence), Tone: model.ConfidenceTone(cl.Confidence)}
	}
	insights := make([]insightView, len(detail.Insights))
	for i, in := range detail.Insights {
		insights[i] = insightView{Insight: in, Tone: in.Risk.Tone()}
	}
	evidence := make([]evidenceView, len(detail.Evidence))
	for i, ev := range detail.Evidence {
		evidence[i] = evidenceView{Evidence: ev, Percent: model.Percent(ev.Relevance)}
	}

	c.JSON(http.StatusOK, gin.H{
		"contract":    detail.ContractSummary,
		"status_tone": detail.Status.Tone(),
		"risk_tone":   detail.Risk.Tone(),
		"clauses":     clauses,
		"insights":    insights,
		"evidence":    evidence,
	})
}
