package session

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// User-visible messages. The English text is the catalog key.
const (
	msgInvalidCredentials = "Incorrect username or password"
	msgRegisterFailed     = "Registration failed"
	msgRegistered         = "Registration successful, you can log in now"
	msgGenericError       = "Something went wrong"
	msgConnectionLost     = "Lost connection to the server"
	msgCannotConnect      = "Cannot connect to the server"
	msgLoginNotSent       = "Could not send the login request"
	msgRegisterNotSent    = "Could not send the registration request"
	msgAutoLoginFailed    = "Could not log in again automatically"
	msgServerShutdown     = "The server is shutting down. Please log in again later."
	msgLoggedInElsewhere  = "Your account was logged in elsewhere. Please log in again."
)

var vietnamese = map[string]string{
	msgInvalidCredentials: "Tài khoản hoặc mật khẩu không đúng",
	msgRegisterFailed:     "Đăng ký thất bại",
	msgRegistered:         "Đăng ký thành công, bạn có thể đăng nhập",
	msgGenericError:       "Có lỗi xảy ra",
	msgConnectionLost:     "Mất kết nối với server",
	msgCannotConnect:      "Không thể kết nối đến server",
	msgLoginNotSent:       "Không thể gửi yêu cầu đăng nhập",
	msgRegisterNotSent:    "Không thể gửi yêu cầu đăng ký",
	msgAutoLoginFailed:    "Không thể tự động đăng nhập lại",
	msgServerShutdown:     "Server đang tắt. Vui lòng đăng nhập lại sau.",
	msgLoggedInElsewhere:  "Tài khoản của bạn đang được đăng nhập ở nơi khác. Vui lòng đăng nhập lại.",
}

// SupportedLanguages lists the languages with a full message catalog. The
// first entry is the fallback.
var SupportedLanguages = []language.Tag{language.English, language.Vietnamese}

var matcher = language.NewMatcher(SupportedLanguages)

func init() {
	for key, text := range vietnamese {
		_ = message.SetString(language.English, key, key)
		_ = message.SetString(language.Vietnamese, key, text)
	}
}

// NewPrinter returns a printer for the best supported match of lang, falling
// back to English for unknown or empty values.
func NewPrinter(lang string) *message.Printer {
	_, index, _ := matcher.Match(language.Make(lang))
	return message.NewPrinter(SupportedLanguages[index])
}
