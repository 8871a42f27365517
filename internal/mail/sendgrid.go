package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Sender delivers reminder mail. Satisfied by SendGridClient and by test
// fakes.
type Sender interface {
	SendReminder(ctx context.Context, toEmail, name string) error
}

// SendGridClient sends mail through the v3 API.
type SendGridClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	sender     string
}

func NewSendGridClient(apiKey, senderEmail string) *SendGridClient {
	return &SendGridClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		sender:     senderEmail,
	}
}

// NewSendGridClientWithBaseURL is used by tests to point at a fake server.
func NewSendGridClientWithBaseURL(apiKey, senderEmail, baseURL string) *SendGridClient {
	c := NewSendGridClient(apiKey, senderEmail)
	c.baseURL = baseURL
	return c
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SendReminder delivers the evening record-your-spending nudge.
func (c *SendGridClient) SendReminder(ctx context.Context, toEmail, name string) error {
	if c.apiKey == "" || c.sender == "" {
		return fmt.Errorf("sendgrid not configured")
	}
	if name == "" {
		name = "사용자"
	}

	body, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{To: []address{{Email: toEmail}}}},
		From:             address{Email: c.sender, Name: "SpendWallet"},
		Subject:          "💸 SpendWallet - 오늘 소비 기록, 1분이면 끝나요!",
		Content:          []content{{Type: "text/html", Value: reminderHTML(name)}},
	})
	if err != nil {
		return fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail send returned status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}

func reminderHTML(name string) string {
	return strings.ReplaceAll(reminderTemplate, "{name}", name)
}

const reminderTemplate = `<!DOCTYPE html>
<html lang="ko">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>SpendWallet 리마인더</title>
</head>
<body style="font-family: 'Segoe UI', Helvetica, Arial, sans-serif; background-color: #f7f9fb; color: #333; margin: 0; padding: 0;">
  <div style="max-width: 520px; margin: 30px auto; background: #ffffff; border-radius: 12px; overflow: hidden;">
    <div style="background-color: #3b82f6; color: #fff; text-align: center; padding: 18px 10px; font-size: 22px; font-weight: 600;">SpendWallet 💸</div>
    <div style="padding: 24px; line-height: 1.7; font-size: 15px;">
      <p>안녕하세요, <strong>{name}</strong>님 👋</p>
      <p>
        오늘 하루 소비를 아직 기록하지 않으셨다면<br/>
        지금 SpendWallet에서 하루를 마무리해보세요!
      </p>
      <p>
        작은 기록이 모여 더 똑똑한 소비로 이어집니다 💪<br/>
        <span style="font-size:13px; color:#777;">(이 메일은 매일 저녁 9시에 자동 발송됩니다)</span>
      </p>
      <a href="https://spendwallet.vercel.app" style="display: inline-block; margin: 25px 0 15px 0; background-color: #3b82f6; color: #fff; padding: 12px 24px; border-radius: 8px; text-decoration: none; font-weight: 600;">대시보드 바로가기</a>
    </div>
    <div style="text-align: center; padding: 16px; font-size: 13px; color: #999; border-top: 1px solid #eee; background-color: #fafafa;">
      이 메일은 SpendWallet의 알림 서비스입니다.<br/>
      수신을 원하지 않으시면 이 메일에 회신하여 알려주세요.
    </div>
  </div>
</body>
</html>`
