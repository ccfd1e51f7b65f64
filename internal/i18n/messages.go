// Package i18n holds the localized user-facing message catalog.
package i18n

import "fmt"

// DefaultLanguage is used for new users and as the fallback catalog.
const DefaultLanguage = "en"

// Supported is the set of selectable language codes. Codes without a catalog
// of their own fall back to English strings.
var Supported = []string{"zh", "en", "ru", "es", "fr", "de", "ja", "ko"}

// IsSupported reports whether code is a selectable language.
func IsSupported(code string) bool {
	for _, c := range Supported {
		if c == code {
			return true
		}
	}
	return false
}

var catalogs = map[string]map[string]string{
	"en": {
		"welcome":             "Welcome to the AI chat bot! Use /setapi to set your API key.",
		"api_request":         "Please enter your OpenAI API key:",
		"api_set_success":     "API key set successfully! You can now start chatting.",
		"api_invalid":         "Invalid API key: %s",
		"chat_start":          "Chat is ready, send a message anytime. Use /help for commands.",
		"chat_reset":          "Chat history has been reset.",
		"need_credential":     "No API key set. Use /setapi to set your OpenAI API key first.",
		"params_current":      "Current AI parameters:\n%s",
		"params_usage":        "/params <name> <value> - modify AI parameters\nAvailable: model, temperature, max_tokens, top_p, frequency_penalty, presence_penalty",
		"params_set_success":  "Parameter %s updated to %s",
		"params_value_prompt": "Send a value for %s:",
		"params_invalid":      "Invalid parameter: %s",
		"language_prompt":     "Please select a language:",
		"language_set":        "Language set to English.",
		"language_invalid":    "Unsupported language: %s",
		"processing":          "Processing your request...",
		"try_again":           "Something went wrong saving your data, please try again.",
		"upstream_auth":       "The upstream rejected your API key. Use /setapi to set a new one.",
		"upstream_ratelimit":  "The upstream is rate limiting you, please wait and try again.",
		"upstream_timeout":    "The request timed out, please try again.",
		"upstream_busy":       "The upstream is overloaded, please try again shortly.",
		"upstream_error":      "The request failed: %s",
		"help_message":        `Available commands:
/start - Start using the bot
/setapi - Set OpenAI API key
/reset - Reset current conversation
/params - View or modify AI parameters
/setlang - Set language
/help - Show help information`,
	},
	"zh": {
		"welcome":             "欢迎使用AI聊天机器人！请使用 /setapi 命令设置您的API密钥。",
		"api_request":         "请输入您的OpenAI API密钥:",
		"api_set_success":     "API密钥设置成功！现在您可以开始聊天了。",
		"api_invalid":         "API密钥无效: %s",
		"chat_start":          "AI聊天已开始，您可以随时发送消息。使用 /help 查看更多命令。",
		"chat_reset":          "聊天历史已重置。",
		"need_credential":     "尚未设置API密钥，请先使用 /setapi 命令设置您的OpenAI API密钥。",
		"params_current":      "当前AI参数设置:\n%s",
		"params_usage":        "/params <参数名> <值> - 修改AI参数\n可用参数: model, temperature, max_tokens, top_p, frequency_penalty, presence_penalty",
		"params_set_success":  "参数 %s 已更新为 %s",
		"params_value_prompt": "请输入 %s 的值:",
		"params_invalid":      "无效的参数: %s",
		"language_prompt":     "请选择语言:",
		"language_set":        "语言已设置为中文。",
		"language_invalid":    "不支持的语言: %s",
		"processing":          "正在处理您的请求...",
		"try_again":           "保存数据时出错，请重试。",
		"upstream_auth":       "上游服务拒绝了您的API密钥，请使用 /setapi 重新设置。",
		"upstream_ratelimit":  "请求过于频繁，请稍后再试。",
		"upstream_timeout":    "请求超时，请重试。",
		"upstream_busy":       "上游服务繁忙，请稍后再试。",
		"upstream_error":      "请求失败: %s",
		"help_message":        `可用命令列表:
/start - 开始使用机器人
/setapi - 设置OpenAI API密钥
/reset - 重置当前对话
/params - 查看或修改AI参数
/setlang - 设置语言
/help - 显示帮助信息`,
	},
}

// Get returns the message for key in lang, falling back to English when the
// language or key has no entry. Optional args are applied printf-style.
func Get(lang, key string, args ...interface{}) string {
	cat, ok := catalogs[lang]
	if !ok {
		cat = catalogs[DefaultLanguage]
	}

	msg, ok := cat[key]
	if !ok {
		msg, ok = catalogs[DefaultLanguage][key]
		if !ok {
			return fmt.Sprintf("message %q not found", key)
		}
	}

	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
