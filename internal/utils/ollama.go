package utils

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// EmbedRequest Ollama /api/embed 请求结构
type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbedResponse Ollama /api/embed 响应结构
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaClient 调用本地 Ollama 生成句向量
type OllamaClient struct {
	host   string
	model  string
	client *HTTPClient

	readyOnce sync.Once
	readyErr  error
}

// NewOllamaClient 创建客户端，通常应通过 SharedOllama 获取进程内单例
func NewOllamaClient(host, model string, timeout time.Duration) *OllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaClient{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: NewHTTPClient(timeout),
	}
}

var (
	ollamaMu      sync.Mutex
	ollamaClients = map[string]*OllamaClient{}
)

// SharedOllama 返回 host+model 对应的进程内单例
func SharedOllama(host, model string) *OllamaClient {
	ollamaMu.Lock()
	defer ollamaMu.Unlock()

	key := host + "|" + model
	if c, ok := ollamaClients[key]; ok {
		return c
	}
	c := NewOllamaClient(host, model, 2*time.Minute)
	ollamaClients[key] = c
	return c
}

// Model 模型名称
func (c *OllamaClient) Model() string {
	return c.model
}

// Ready 确认模型已在 Ollama 中可用，只检查一次
func (c *OllamaClient) Ready(ctx context.Context) error {
	c.readyOnce.Do(func() {
		var resp map[string]interface{}
		err := c.client.PostJSON(ctx, c.host+"/api/show", map[string]string{"model": c.model}, &resp)
		if err != nil {
			c.readyErr = fmt.Errorf("ollama 模型 %s 不可用: %w", c.model, err)
		}
	})
	return c.readyErr
}

// Embed 批量生成向量，返回顺序与输入一致
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var result EmbedResponse
	req := EmbedRequest{Model: c.model, Input: texts}
	if err := c.client.PostJSON(ctx, c.host+"/api/embed", req, &result); err != nil {
		return nil, fmt.Errorf("post request to ollama failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}
