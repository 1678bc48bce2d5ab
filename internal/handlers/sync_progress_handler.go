package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gitbridge/internal/database"
	"gitbridge/pkg/config"
	"gitbridge/pkg/jwt"
	"gitbridge/pkg/logger"
)

// SyncProgressHandler 同步进度WebSocket处理器
type SyncProgressHandler struct {
	upgrader    websocket.Upgrader
	redisClient *redis.Client
	log         *logrus.Logger
	jwtManager  *jwt.JWTManager
}

// NewSyncProgressHandler 创建同步进度处理器
func NewSyncProgressHandler() *SyncProgressHandler {
	cfg := config.GetConfig()
	allowedOrigins := cfg.CORS.AllowOrigins

	return &SyncProgressHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				for _, allowed := range allowedOrigins {
					if allowed == "*" {
						return true
					}
				}

				// 同源请求Origin为空，放行
				if origin == "" {
					return true
				}

				for _, allowed := range allowedOrigins {
					if matchOrigin(origin, allowed) {
						return true
					}
				}

				logger.GetLogger().Warnf("WebSocket连接被拒绝，非法Origin: %s", origin)
				return false
			},
			ReadBufferSize:  1024 * 32,
			WriteBufferSize: 1024 * 32,
		},
		redisClient: database.GetRedisQueue().GetClient(),
		log:         logger.GetLogger(),
		jwtManager:  jwt.GetJWTManager(),
	}
}

// Progress 推送分支同步进度
//
// 订阅进度广播频道，把与调用方账户匹配的进度事件转发给客户端。
func (h *SyncProgressHandler) Progress(c *gin.Context) {
	// WebSocket不支持自定义header，token从查询参数取
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少认证令牌"})
		return
	}

	claims, err := h.jwtManager.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的令牌"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.log.WithFields(logrus.Fields{
		"account_id": claims.AccountID,
		"user_id":    claims.UserID,
	}).Info("同步进度WebSocket连接建立")

	h.handleProgressConnection(conn, claims)
}

// handleProgressConnection 转发进度消息
func (h *SyncProgressHandler) handleProgressConnection(conn *websocket.Conn, claims *jwt.JWTClaims) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := config.GetConfig().GitSync.ProgressChannel
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.log.WithError(err).Error("Failed to subscribe to Redis channel")
		return
	}

	go h.readPump(conn, cancel)

	ch := pubsub.Channel()
	const writeTimeout = 10 * time.Second

	pingTicker := time.NewTicker(60 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.WithError(err).Error("Failed to send ping")
				return
			}

		case msg := <-ch:
			if msg == nil {
				continue
			}

			var progress map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &progress); err != nil {
				h.log.WithError(err).Error("Failed to parse progress message")
				continue
			}

			// 只转发本账户的进度事件
			if accountID, _ := progress["account_id"].(string); accountID != claims.AccountID {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(progress); err != nil {
				h.log.WithError(err).Error("Failed to send message to client")
				return
			}
		}
	}
}

// readPump 处理客户端消息（主要是ping/pong）
func (h *SyncProgressHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	pongWait := 300 * time.Second
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Error("WebSocket unexpected close")
			}
			break
		}
	}
}

// matchOrigin 检查origin是否匹配allowed模式
// 支持精确匹配和通配符匹配（如 *.example.com）
func matchOrigin(origin, allowed string) bool {
	if origin == allowed {
		return true
	}

	if strings.HasPrefix(allowed, "*.") {
		domain := allowed[2:]

		originHost := origin
		if idx := strings.Index(origin, "://"); idx != -1 {
			originHost = origin[idx+3:]
		}
		if idx := strings.Index(originHost, ":"); idx != -1 {
			originHost = originHost[:idx]
		}

		if originHost == domain {
			return true
		}
		if strings.HasSuffix(originHost, "."+domain) {
			return true
		}
	}

	return false
}
