package logger

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Sanitizer 負責過濾日誌中的敏感資訊
//
// 限制說明：
//   - SanitizeArgs() 僅對「敏感 key 的 value」進行遮罩（如 secret_access_key、token 等）
//   - 非敏感 key（如 "url"、"error"）的 value 只有符合字串規則時才會被遮罩
type Sanitizer struct {
	mu       sync.RWMutex
	patterns []SanitizeRule
}

// SanitizeRule 單一過濾規則
type SanitizeRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// NewSanitizer 建立預設 sanitizer
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultSanitizeRules(),
	}
}

func defaultSanitizeRules() []SanitizeRule {
	return []SanitizeRule{
		// rclone 與一般 key=value 形式的密鑰
		{regexp.MustCompile(`(?i)password=\S+`), "password=***"},
		{regexp.MustCompile(`(?i)\bpass=\S+`), "pass=***"},
		{regexp.MustCompile(`(?i)client_secret=\S+`), "client_secret=***"},
		{regexp.MustCompile(`(?i)token=\S+`), "token=***"},
		{regexp.MustCompile(`(?i)bearer\s+\S+`), "bearer ***"},

		// S3 presigned URL 與 access key
		{regexp.MustCompile(`X-Amz-Signature=[0-9a-fA-F]+`), "X-Amz-Signature=***"},
		{regexp.MustCompile(`X-Amz-Credential=[^&\s]+`), "X-Amz-Credential=***"},
		{regexp.MustCompile(`\b(AKIA|ASIA)[0-9A-Z]{16}\b`), "${1}***"},

		// 家目錄中的使用者名稱
		{regexp.MustCompile(`(?i)[A-Z]:\\Users\\[^\\]+`), "***:\\Users\\***"},
		{regexp.MustCompile(`/home/[^/\s]+`), "/home/***"},
		{regexp.MustCompile(`/Users/[^/\s]+`), "/Users/***"},
	}
}

// Sanitize 對輸入套用所有規則
func (s *Sanitizer) Sanitize(input string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := input
	for _, rule := range s.patterns {
		result = rule.Pattern.ReplaceAllString(result, rule.Replacement)
	}
	return result
}

// SanitizeArgs 遮蔽 slog key/value 參數中敏感鍵的值
func (s *Sanitizer) SanitizeArgs(args []any) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(args) == 0 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok || !s.isSensitiveKey(key) {
			continue
		}

		switch v := result[i+1].(type) {
		case string:
			result[i+1] = s.maskValue(v)
		case error:
			result[i+1] = s.maskValue(v.Error())
		}
	}

	return result
}

var sensitiveKeys = []string{
	"password", "pass",
	"token", "secret", "access_key", "api_key", "apikey",
	"credential", "auth",
}

func (s *Sanitizer) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sk := range sensitiveKeys {
		if strings.Contains(lowerKey, sk) {
			return true
		}
	}
	return false
}

// maskValue 遮蔽值（保留第一個字元，長值另保留最後一個）
func (s *Sanitizer) maskValue(value string) string {
	if len(value) <= 2 {
		return "***"
	}
	if len(value) <= 8 {
		return fmt.Sprintf("%s***", string(value[0]))
	}
	return fmt.Sprintf("%s***%s", string(value[0]), string(value[len(value)-1]))
}

// AddRule 新增自訂過濾規則
func (s *Sanitizer) AddRule(pattern string, replacement string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	s.patterns = append(s.patterns, SanitizeRule{
		Pattern:     re,
		Replacement: replacement,
	})
	return nil
}
