package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nazhim/markaz-api/internal/middleware"
	"github.com/nazhim/markaz-api/internal/services"
	"github.com/nazhim/markaz-api/internal/storage"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// @Summary Create Spending Task
// @Description Create a new spending task in draft status
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task body services.CreateTaskInput true "Task"
// @Success 201 {object} models.SpendingTaskResponse
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var in services.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	in.CreatedBy = middleware.GetUserID(c)

	task, err := h.taskService.CreateTask(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task.ToResponse()})
}

// @Summary List Spending Tasks
// @Description List spending tasks, optionally filtered by status
// @Tags Tasks
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) Index(c *gin.Context) {
	tasks, err := h.taskService.ListTasks(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(tasks))
	for _, t := range tasks {
		responses = append(responses, t.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"tasks": responses})
}

// @Summary Get Spending Task
// @Description Get a spending task with funding, receipts and settlements
// @Tags Tasks
// @Produce json
// @Param task_id path int true "Task ID"
// @Success 200 {object} models.SpendingTaskResponse
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id} [get]
func (h *TaskHandler) Show(c *gin.Context) {
	task, err := h.taskService.FindTask(c.Request.Context(), h.taskID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task.ToResponse()})
}

// @Summary Task Settlement Summary
// @Description Get the computed budget, receipt total, diff and dues of a task
// @Tags Tasks
// @Produce json
// @Param task_id path int true "Task ID"
// @Success 200 {object} models.TaskSummary
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/summary [get]
func (h *TaskHandler) Summary(c *gin.Context) {
	summary, err := h.taskService.GetTaskSummary(c.Request.Context(), h.taskID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// @Summary Fund Task
// @Description Attach the single funding to a task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task_id path int true "Task ID"
// @Param funding body services.FundingInput true "Funding"
// @Success 201 {object} models.SpendingTaskResponse
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/funding [post]
func (h *TaskHandler) CreateFunding(c *gin.Context) {
	var in services.FundingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	task, err := h.taskService.CreateFunding(c.Request.Context(), h.taskID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task.ToResponse()})
}

// @Summary Update Task Funding
// @Description Update the funding amount or metadata of a task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task_id path int true "Task ID"
// @Param funding body services.FundingInput true "Funding"
// @Success 200 {object} models.SpendingTaskResponse
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/funding [put]
func (h *TaskHandler) UpdateFunding(c *gin.Context) {
	var in services.FundingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	task, err := h.taskService.UpdateFunding(c.Request.Context(), h.taskID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task.ToResponse()})
}

// @Summary Submit Receipt
// @Description Add a receipt with line items to a funded task; the declared total must match the items
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task_id path int true "Task ID"
// @Param receipt body services.ReceiptInput true "Receipt"
// @Success 201 {object} models.SpendingTaskResponse
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/receipts [post]
func (h *TaskHandler) CreateReceipt(c *gin.Context) {
	var in services.ReceiptInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	task, err := h.taskService.CreateReceipt(c.Request.Context(), h.taskID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task.ToResponse()})
}

// @Summary Delete Receipt
// @Description Remove a receipt with its items and cashbacks from a task
// @Tags Tasks
// @Produce json
// @Param task_id path int true "Task ID"
// @Param receipt_id path int true "Receipt ID"
// @Success 200 {object} models.SpendingTaskResponse
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/receipts/{receipt_id} [delete]
func (h *TaskHandler) DeleteReceipt(c *gin.Context) {
	task, err := h.taskService.DeleteReceipt(c.Request.Context(), h.taskID(c), h.receiptID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task.ToResponse()})
}

// @Summary Upload Receipt Attachment
// @Description Attach a scanned receipt file (pdf, jpeg or png) to a receipt
// @Tags Tasks
// @Accept multipart/form-data
// @Produce json
// @Param task_id path int true "Task ID"
// @Param receipt_id path int true "Receipt ID"
// @Param file formData file true "Receipt scan"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/receipts/{receipt_id}/attachment [post]
func (h *TaskHandler) UploadReceiptAttachment(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	if c.Request.ContentLength > 0 && c.Request.ContentLength > storage.MaxFileSize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is too large"})
		return
	}

	receipt, err := h.taskService.AttachReceiptFile(c.Request.Context(), h.taskID(c), h.receiptID(c), file, header)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Attachment uploaded",
		"attachment_url": receipt.AttachmentURL,
	})
}

// @Summary Record Cashback
// @Description Record vendor money returned against a receipt; the wallet is credited atomically
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task_id path int true "Task ID"
// @Param receipt_id path int true "Receipt ID"
// @Param cashback body services.CashbackInput true "Cashback"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/receipts/{receipt_id}/cashbacks [post]
func (h *TaskHandler) CreateCashback(c *gin.Context) {
	var in services.CashbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	in.CreatedBy = middleware.GetUserID(c)

	cashback, err := h.taskService.CreateCashback(c.Request.Context(), h.taskID(c), h.receiptID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cashback": cashback})
}

type settlementRequest struct {
	Notes string `json:"notes"`
}

// @Summary Mark Refund Done
// @Description Confirm the refund of surplus funds was returned; locks the direction permanently
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task_id path int true "Task ID"
// @Param body body settlementRequest false "Notes"
// @Success 200 {object} models.SpendingTaskResponse
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/refund_done [post]
func (h *TaskHandler) RefundDone(c *gin.Context) {
	var req settlementRequest
	_ = c.ShouldBindJSON(&req)

	task, err := h.taskService.MarkRefundDone(c.Request.Context(), h.taskID(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task.ToResponse()})
}

// @Summary Mark Reimburse Done
// @Description Confirm the overspend was reimbursed to the spender; locks the direction permanently
// @Tags Tasks
// @Accept json
// @Produce json
// @Param task_id path int true "Task ID"
// @Param body body settlementRequest false "Notes"
// @Success 200 {object} models.SpendingTaskResponse
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tasks/{task_id}/reimburse_done [post]
func (h *TaskHandler) ReimburseDone(c *gin.Context) {
	var req settlementRequest
	_ = c.ShouldBindJSON(&req)

	task, err := h.taskService.MarkReimburseDone(c.Request.Context(), h.taskID(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task.ToResponse()})
}

func (h *TaskHandler) taskID(c *gin.Context) uint {
	id, _ := strconv.ParseUint(c.Param("task_id"), 10, 32)
	return uint(id)
}

func (h *TaskHandler) receiptID(c *gin.Context) uint {
	id, _ := strconv.ParseUint(c.Param("receipt_id"), 10, 32)
	return uint(id)
}
