package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// PatientRecord 提取服务返回的结构化患者记录
type PatientRecord struct {
	Name      string `json:"name"`
	MRN       string `json:"mrn"`
	Bed       string `json:"bed"`
	Diagnosis string `json:"diagnosis"`
	Notes     string `json:"notes"`
}

// ExtractRequest 提取服务请求
type ExtractRequest struct {
	Document string `json:"document"`
	MimeType string `json:"mimeType,omitempty"`
}

// ExtractResponse 提取服务响应
type ExtractResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// ExtractClient calls the external language-model service that turns
// free-form census documents into structured patient records. The service is
// a black box; this client only owns transport, retry and decoding.
type ExtractClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewExtractClient 创建提取服务客户端
func NewExtractClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *ExtractClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &ExtractClient{
		httpClient: client,
		logger:     logger,
	}
}

// ExtractPatients 提取患者列表
func (c *ExtractClient) ExtractPatients(ctx context.Context, document, mimeType string) ([]PatientRecord, error) {
	c.logger.Info("Calling extraction service",
		zap.Int("document_bytes", len(document)),
		zap.String("mime_type", mimeType),
	)

	var response ExtractResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(ExtractRequest{Document: document, MimeType: mimeType}).
		SetResult(&response).
		Post("/v1/extract/patients")
	if err != nil {
		c.logger.Error("Extraction service call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call extraction service: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Extraction service returned HTTP error",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("extraction service HTTP %d", resp.StatusCode())
	}
	if response.Status != 0 {
		c.logger.Error("Extraction service returned error",
			zap.Int("status", response.Status),
			zap.String("msg", response.Msg),
		)
		return nil, fmt.Errorf("extraction service error: %s (status: %d)", response.Msg, response.Status)
	}

	var records []PatientRecord
	if err := json.Unmarshal(response.Data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patient records: %w", err)
	}

	c.logger.Info("Extraction completed", zap.Int("patient_count", len(records)))
	return records, nil
}
