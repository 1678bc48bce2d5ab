package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"gitbridge/internal/models"
	"gitbridge/pkg/config"
	gserrors "gitbridge/pkg/errors"

	"gorm.io/gorm"
)

// ConnectorCatalog 连接器目录
//
// storeRepo/storeBranch 为连接器定义的存储上下文，均为空表示默认上下文。
type ConnectorCatalog interface {
	Get(scope models.Scope, identifier, storeRepo, storeBranch string) (*models.GitConnector, error)
}

// gormConnectorCatalog 数据库实现
type gormConnectorCatalog struct {
	db *gorm.DB
}

// NewConnectorCatalog 创建数据库连接器目录
func NewConnectorCatalog(db *gorm.DB) ConnectorCatalog {
	return &gormConnectorCatalog{db: db}
}

func (c *gormConnectorCatalog) Get(scope models.Scope, identifier, storeRepo, storeBranch string) (*models.GitConnector, error) {
	var connector models.GitConnector
	err := c.db.Where(
		"account_id = ? AND org_id = ? AND project_id = ? AND identifier = ? AND store_repo = ? AND store_branch = ?",
		scope.AccountID, scope.OrgID, scope.ProjectID, identifier, storeRepo, storeBranch,
	).First(&connector).Error
	if err != nil {
		return nil, err
	}
	return &connector, nil
}

// ConnectorResolverService 连接器解析服务
//
// 解析与解密是两个独立步骤：本地执行路径在使用前就地解密；委托端执行
// 路径跳过解密，把加密凭证原样放进任务消息，由客户网络内的委托端解密。
type ConnectorResolverService struct {
	catalog ConnectorCatalog
}

// NewConnectorResolverService 创建连接器解析服务
func NewConnectorResolverService(catalog ConnectorCatalog) *ConnectorResolverService {
	return &ConnectorResolverService{catalog: catalog}
}

// Resolve 解析连接器（不解密）
//
// 先用清空的分支上下文查找（连接器按自己的默认上下文解析，避免对正在
// 同步的分支上下文产生递归依赖）；查不到再用配置提供的repo/branch提示
// 重试；仍查不到返回连接器不存在。
func (s *ConnectorResolverService) Resolve(scope models.Scope, ref, repoHint, branchHint string) (*models.GitConnector, error) {
	connector, err := s.catalog.Get(scope, ref, "", "")
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询连接器失败: %v", err)
		}
		if repoHint == "" && branchHint == "" {
			return nil, gserrors.NewConnectorNotFound(ref)
		}
		connector, err = s.catalog.Get(scope, ref, repoHint, branchHint)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, gserrors.NewConnectorNotFound(ref)
			}
			return nil, fmt.Errorf("查询连接器失败: %v", err)
		}
	}

	if !connector.IsGitType() {
		return nil, gserrors.NewNotAGitConnector(ref, string(connector.Type))
	}

	return connector, nil
}

// ResolveForConfig 按同步配置解析连接器（带存储上下文提示）
func (s *ConnectorResolverService) ResolveForConfig(cfg *models.GitSyncConfig) (*models.GitConnector, error) {
	return s.Resolve(cfg.GetScope(), cfg.GitConnectorRef, cfg.ConnectorsRepo, cfg.ConnectorsBranch)
}

// Decrypt 解密连接器凭证
//
// 返回携带明文凭证的副本，不修改目录中的记录；明文不应在单次调用之外
// 存活。
func (s *ConnectorResolverService) Decrypt(connector *models.GitConnector, scope models.Scope) (*models.GitConnector, error) {
	decrypted := *connector

	var err error
	if decrypted.Token, err = decryptField(connector.Token); err != nil {
		return nil, fmt.Errorf("解密连接器 %s 凭证失败: %v", connector.Identifier, err)
	}
	if decrypted.Password, err = decryptField(connector.Password); err != nil {
		return nil, fmt.Errorf("解密连接器 %s 凭证失败: %v", connector.Identifier, err)
	}
	if decrypted.PrivateKey, err = decryptField(connector.PrivateKey); err != nil {
		return nil, fmt.Errorf("解密连接器 %s 凭证失败: %v", connector.Identifier, err)
	}
	if decrypted.Passphrase, err = decryptField(connector.Passphrase); err != nil {
		return nil, fmt.Errorf("解密连接器 %s 凭证失败: %v", connector.Identifier, err)
	}

	return &decrypted, nil
}

// EncryptConnectorFields 加密连接器的敏感字段（写入目录前调用）
func EncryptConnectorFields(connector *models.GitConnector) error {
	var err error
	if connector.Token, err = encryptField(connector.Token); err != nil {
		return err
	}
	if connector.Password, err = encryptField(connector.Password); err != nil {
		return err
	}
	if connector.PrivateKey, err = encryptField(connector.PrivateKey); err != nil {
		return err
	}
	if connector.Passphrase, err = encryptField(connector.Passphrase); err != nil {
		return err
	}
	return nil
}

// encryptionKey 获取加密密钥（从配置读取）
func encryptionKey() []byte {
	cfg := config.GetConfig()
	key := cfg.Connector.EncryptionKey

	// 确保密钥长度为32字节（AES-256要求）
	if len(key) < 32 {
		key = "gitbridge-connector-secret-key32"
	} else if len(key) > 32 {
		key = key[:32]
	}

	return []byte(key)
}

// encryptField 加密敏感数据
func encryptField(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	key := encryptionKey()
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decryptField 解密敏感数据
func decryptField(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	key := encryptionKey()
	ciphertextBytes, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertextBytes) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertextBytes := ciphertextBytes[:nonceSize], ciphertextBytes[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
