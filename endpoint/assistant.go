package endpoint

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medicloudhq/portal/assistant"
	"github.com/medicloudhq/portal/config"
	"github.com/medicloudhq/portal/middleware"
	"github.com/medicloudhq/portal/model"
	"github.com/medicloudhq/portal/util"
)

type AssistantRequest struct {
	Mode        string `json:"mode"`
	Prompt      string `json:"prompt"`
	Transcript  string `json:"transcript"`
	Image       string `json:"image"`
	ImageBase64 string `json:"image_base64"`
}

// assistantInput picks the payload field for the request mode. Voice clients
// send a transcript, the others send a prompt.
func assistantInput(req AssistantRequest) string {
	if input := strings.TrimSpace(req.Prompt); input != "" {
		return input
	}
	return strings.TrimSpace(req.Transcript)
}

func assistantImage(req AssistantRequest) string {
	if img := strings.TrimSpace(req.ImageBase64); img != "" {
		return img
	}
	return strings.TrimSpace(req.Image)
}

func logAssistantCall(db *gorm.DB, mode, modelID string, latency float64, tokenCount int, status, clientIP string) {
	if db == nil {
		return
	}
	entry := model.AssistantLog{
		Mode:           mode,
		ModelID:        modelID,
		LatencySeconds: latency,
		TokenCount:     tokenCount,
		Status:         status,
		ClientIP:       clientIP,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("failed to record assistant call: %v", err)
	}
}

// AskAssistant godoc
// @Summary      Ask the AI assistant
// @Description  Send a clinical, voice, text, or image request to the Bedrock-backed assistant
// @Tags         Assistant
// @Accept       json
// @Produce      json
// @Param        request body AssistantRequest true "Assistant request"
// @Success      200 {object} util.APIResponse{data=object} "Assistant reply"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      500 {object} util.APIResponse "Assistant request failed"
// @Router       /assistant [post]
func AskAssistant(c *gin.Context) {
	req := AssistantRequest{}

	if err := c.ShouldBindJSON(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request body",
			Err: err,
		})
		return
	}

	if req.Mode == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "mode is required",
			Err: fmt.Errorf("mode missing"),
		})
		return
	}
	if !assistant.ValidMode(req.Mode) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Invalid mode: %s", req.Mode),
			Err: fmt.Errorf("unknown assistant mode"),
		})
		return
	}

	var (
		input string
		image string
	)
	if req.Mode == assistant.ModeImage {
		image = assistantImage(req)
		if image == "" {
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Image missing",
				Err: fmt.Errorf("image payload missing"),
			})
			return
		}
	} else {
		input = assistantInput(req)
		if input == "" {
			util.CallUserError(c, util.APIErrorParams{
				Msg: "Empty input",
				Err: fmt.Errorf("prompt missing"),
			})
			return
		}
	}

	db := middleware.GetDB(c)
	client := config.GetBedrockClient()

	start := time.Now()
	var (
		reply assistant.Reply
		err   error
	)
	if req.Mode == assistant.ModeImage {
		reply, err = assistant.AnalyzeImage(c.Request.Context(), client, image)
	} else {
		reply, err = assistant.AskText(c.Request.Context(), client, input)
	}
	latency := math.Round(time.Since(start).Seconds()*100) / 100

	if err != nil {
		logAssistantCall(db, req.Mode, reply.ModelID, latency, 0, "ERROR", c.ClientIP())
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Assistant request failed",
			Err: err,
		})
		return
	}

	logAssistantCall(db, req.Mode, reply.ModelID, latency, reply.TokenCount, "SUCCESS", c.ClientIP())

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Assistant reply",
		Data: map[string]interface{}{
			"answer":          strings.TrimSpace(reply.Answer),
			"latency_seconds": latency,
			"token_count":     reply.TokenCount,
		},
	})
}
