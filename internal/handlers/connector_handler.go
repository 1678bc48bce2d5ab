package handlers

import (
	"github.com/gin-gonic/gin"

	"gitbridge/internal/models"
	"gitbridge/internal/services"
	"gitbridge/pkg/pagination"
	"gitbridge/pkg/response"
)

// ConnectorHandler 连接器处理器
type ConnectorHandler struct {
	connectors *services.ConnectorService
}

// NewConnectorHandler 创建连接器处理器
func NewConnectorHandler(connectors *services.ConnectorService) *ConnectorHandler {
	return &ConnectorHandler{connectors: connectors}
}

// createConnectorRequest 创建连接器请求
type createConnectorRequest struct {
	Identifier  string `json:"identifier" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required,oneof=github gitlab git ssh api"`
	URL         string `json:"url"`
	AuthType    string `json:"auth_type" binding:"omitempty,oneof=token password ssh_key"`
	Username    string `json:"username"`
	Token       string `json:"token"`
	Password    string `json:"password"`
	PrivateKey  string `json:"private_key"`
	Passphrase  string `json:"passphrase"`

	ExecuteOnDelegate *bool `json:"execute_on_delegate"`
}

// Create 创建连接器
func (h *ConnectorHandler) Create(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	var req createConnectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	connector := &models.GitConnector{
		AccountID:         scope.AccountID,
		OrgID:             scope.OrgID,
		ProjectID:         scope.ProjectID,
		Identifier:        req.Identifier,
		Name:              req.Name,
		Description:       req.Description,
		Type:              models.ConnectorType(req.Type),
		URL:               req.URL,
		AuthType:          models.ConnectorAuthType(req.AuthType),
		Username:          req.Username,
		Token:             req.Token,
		Password:          req.Password,
		PrivateKey:        req.PrivateKey,
		Passphrase:        req.Passphrase,
		ExecuteOnDelegate: req.ExecuteOnDelegate,
		IsActive:          true,
	}

	if err := h.connectors.Create(connector); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", connector)
}

// Get 查询连接器
func (h *ConnectorHandler) Get(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	connector, err := h.connectors.Get(scope, c.Param("identifier"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, connector)
}

// List 列出连接器
func (h *ConnectorHandler) List(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	params := pagination.ParsePageParams(c)
	connectors, total, err := h.connectors.List(scope, params.Page, params.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	pageInfo := pagination.NewPageInfo(params.Page, params.PageSize, total)
	response.SuccessWithPage(c, connectors, pageInfo)
}

// updateCredentialsRequest 轮换凭证请求
type updateCredentialsRequest struct {
	Token      string `json:"token"`
	Password   string `json:"password"`
	PrivateKey string `json:"private_key"`
	Passphrase string `json:"passphrase"`
}

// UpdateCredentials 轮换连接器凭证
func (h *ConnectorHandler) UpdateCredentials(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	var req updateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	err := h.connectors.UpdateCredentials(scope, c.Param("identifier"), &models.GitConnector{
		Token:      req.Token,
		Password:   req.Password,
		PrivateKey: req.PrivateKey,
		Passphrase: req.Passphrase,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "凭证已更新", nil)
}

// executionOverrideRequest 执行路由覆盖请求
type executionOverrideRequest struct {
	ExecuteOnDelegate *bool `json:"execute_on_delegate"`
}

// SetExecutionOverride 设置连接器级执行路由覆盖
func (h *ConnectorHandler) SetExecutionOverride(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	var req executionOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误")
		return
	}

	if err := h.connectors.SetExecutionOverride(scope, c.Param("identifier"), req.ExecuteOnDelegate); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "执行路由已更新", nil)
}

// Delete 删除连接器
func (h *ConnectorHandler) Delete(c *gin.Context) {
	scope, ok := scopeFromQuery(c)
	if !ok {
		return
	}

	if err := h.connectors.Delete(scope, c.Param("identifier")); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}
