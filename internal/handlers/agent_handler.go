package handlers

import (
	"github.com/gin-gonic/gin"

	"gitbridge/internal/services"
	"gitbridge/pkg/jwt"
	"gitbridge/pkg/response"
)

// AgentHandler 委托端处理器
type AgentHandler struct {
	agents *services.AgentAuthService
}

// NewAgentHandler 创建委托端处理器
func NewAgentHandler(agents *services.AgentAuthService) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// registerAgentRequest 注册请求
type registerAgentRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Hostname  string `json:"hostname"`
	Version   string `json:"version"`
}

// Register 注册委托端
//
// 访问密钥只在注册响应中下发一次，之后仅存哈希。
func (h *AgentHandler) Register(c *gin.Context) {
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	agent, accessKey, err := h.agents.RegisterAgent(req.AccountID, req.Name, req.Hostname, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "注册成功", gin.H{
		"agent_id":   agent.AgentID,
		"access_key": accessKey,
	})
}

// authAgentRequest 认证请求
type authAgentRequest struct {
	AgentID   string `json:"agent_id" binding:"required"`
	AccessKey string `json:"access_key" binding:"required"`
}

// Authenticate 认证委托端，签发JWT
func (h *AgentHandler) Authenticate(c *gin.Context) {
	var req authAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	token, err := h.agents.Authenticate(req.AgentID, req.AccessKey)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	response.Success(c, gin.H{"token": token})
}

// Heartbeat 委托端心跳
func (h *AgentHandler) Heartbeat(c *gin.Context) {
	claims := c.MustGet("claims").(*jwt.JWTClaims)

	if err := h.agents.Heartbeat(claims.UserID); err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, nil)
}

// List 列出账户下的委托端
func (h *AgentHandler) List(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.BadRequest(c, "缺少account_id参数")
		return
	}

	agents, err := h.agents.ListAgents(accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, agents)
}
