package classify

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

// Provider presets for chat-completions compatible APIs.
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
)

// LLMConfig configures the chat-completions client.
type LLMConfig struct {
	Provider string
	APIKey   string
	BaseURL  string // optional override; defaults follow the provider
	Model    string // optional override; defaults follow the provider
	Timeout  time.Duration
}

// LLM classifies legs through a chat-completions API. Responses are trimmed
// to a single label; failures fall through to the caller, which substitutes
// the fallback labels.
type LLM struct {
	cfg    LLMConfig
	client *http.Client
}

// NewLLM builds a classifier for the configured provider.
func NewLLM(cfg LLMConfig) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classify: api key required")
	}
	switch cfg.Provider {
	case ProviderDeepSeek, "":
		cfg.Provider = ProviderDeepSeek
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.deepseek.com/v1"
		}
		if cfg.Model == "" {
			cfg.Model = "deepseek-chat"
		}
	case ProviderOpenAI:
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
	default:
		return nil, fmt.Errorf("classify: unknown provider %q", cfg.Provider)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &LLM{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *LLM) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 50,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("classify: %s returned %d: %s", c.cfg.Provider, resp.StatusCode, string(b))
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("classify: empty completion")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// ClassifyPurpose labels the payment purpose based on income-statement
// leaf accounts.
func (c *LLM) ClassifyPurpose(ctx context.Context, summary, account, auxiliary string) (string, error) {
	prompt := fmt.Sprintf(`请根据以下会计信息，对款项用途进行分类。请基于利润表的末级科目进行分类。

**会计信息**：
- 摘要：%s
- 科目名称：%s
- 辅助项：%s

请只返回分类名称，不要解释。如果无法确定，返回"%s"。`, summary, account, auxiliary, DefaultPurpose)

	label, err := c.complete(ctx, prompt)
	if err != nil || label == "" {
		return DefaultPurpose, err
	}
	return label, nil
}

// ClassifyCashFlow labels the cash-flow statement item per 企业会计准则第31号.
func (c *LLM) ClassifyCashFlow(ctx context.Context, summary, account, auxiliary string) (string, error) {
	prompt := fmt.Sprintf(`请根据以下会计信息，对现金流量表项目进行分类。请根据《企业会计准则第31号——现金流量表》的规范进行分类。

**会计信息**：
- 摘要：%s
- 科目名称：%s
- 辅助项：%s

请从以下标准分类中选择最合适的一项：

**经营活动**：
- 购买商品、接受劳务支付的现金
- 支付给职工以及为职工支付的现金
- 支付的各项税费
- 支付其他与经营活动有关的现金

**投资活动**：
- 购建固定资产、无形资产和其他长期资产支付的现金
- 投资支付的现金
- 取得子公司及其他营业单位支付的现金净额
- 支付其他与投资活动有关的现金

**筹资活动**：
- 偿还债务支付的现金
- 分配股利、利润或偿付利息支付的现金
- 支付其他与筹资活动有关的现金

**其他**：
- 其他活动

只返回分类名称，不要解释。如果无法确定，返回"%s"。`, summary, account, auxiliary, DefaultCashFlow)

	label, err := c.complete(ctx, prompt)
	if err != nil || label == "" {
		return DefaultCashFlow, err
	}
	return label, nil
}
