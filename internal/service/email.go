package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mealplan/internal/logger"
	"github.com/timmy/mealplan/internal/prompts"
)

// Email is one outbound message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailConfig holds configuration for the email API client.
type EmailConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// EmailService sends transactional email through a Resend-style HTTP API.
type EmailService struct {
	client   *resty.Client
	endpoint string
	from     string
}

// NewEmailService creates a new email client.
func NewEmailService(cfg *EmailConfig) *EmailService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmailService{
		client: resty.New().
			SetHeader("Authorization", "Bearer "+cfg.APIKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + "/emails",
		from:     cfg.From,
	}
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendEmailResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send delivers one email. Any non-2xx reply is an error.
func (s *EmailService) Send(ctx context.Context, msg Email) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("email recipient is empty")
	}

	var resp sendEmailResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(sendEmailRequest{
			From:    s.from,
			To:      []string{msg.To},
			Subject: msg.Subject,
			HTML:    msg.HTML,
		}).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return fmt.Errorf("failed to call email API: %w", err)
	}
	if httpResp.IsError() {
		return fmt.Errorf("email API returned HTTP %d: %s", httpResp.StatusCode(), resp.Message)
	}

	logger.FromContext(ctx).WithField("email_id", resp.ID).Info("Plan email sent")
	return nil
}

// PlanEmailData fills the delivery email template.
type PlanEmailData struct {
	Month       string
	RecipeCount int
	DietType    string
	FamilySize  int
	DocumentURL string
	Highlights  []string
}

var planEmailTemplate = template.Must(template.New("plan_email").Parse(prompts.PlanEmailTemplate))

// RenderPlanEmail builds the delivery email for a finished plan.
func RenderPlanEmail(to string, data PlanEmailData) (Email, error) {
	var buf bytes.Buffer
	if err := planEmailTemplate.Execute(&buf, data); err != nil {
		return Email{}, fmt.Errorf("render plan email: %w", err)
	}
	return Email{To: to, Subject: prompts.PlanEmailSubject, HTML: buf.String()}, nil
}
