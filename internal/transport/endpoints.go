package transport

import "strings"

// BootstrapKind — типизированное перечисление auth-bootstrap эндпойнтов:
// они обязаны работать без валидной сессии, не получают Authorization
// и никогда не запускают refresh при ошибке.
type BootstrapKind int

const (
	KindUnknown BootstrapKind = iota
	KindLogin
	KindRegister
	KindRefresh
	KindGenerateOTP
	KindVerifyOTP
	KindForgotPassword
	KindResetPassword
	KindLogout
)

// bootstrapPaths — канонические пути bootstrap-эндпойнтов.
// Сопоставление по вхождению пути, а не произвольных подстрок:
// "/players/login-stats" не должен попадать под "login".
var bootstrapPaths = []struct {
	kind BootstrapKind
	path string
}{
	{KindLogin, "/auth/login"},
	{KindRegister, "/auth/register"},
	{KindRefresh, "/auth/refresh"},
	{KindGenerateOTP, "/auth/generate-otp"},
	{KindVerifyOTP, "/auth/verify-otp"},
	{KindForgotPassword, "/auth/forgot-password"},
	{KindResetPassword, "/auth/reset-password"},
	{KindLogout, "/auth/logout"},
}

func (k BootstrapKind) String() string {
	for _, e := range bootstrapPaths {
		if e.kind == k {
			return strings.TrimPrefix(e.path, "/auth/")
		}
	}

	return "unknown"
}

// BootstrapKindOf сопоставляет путь запроса с bootstrap-эндпойнтом.
func BootstrapKindOf(path string) (BootstrapKind, bool) {
	p := strings.TrimSuffix(path, "/")

	for _, e := range bootstrapPaths {
		if p == e.path || strings.HasSuffix(p, e.path) {
			return e.kind, true
		}
	}

	return KindUnknown, false
}

// IsBootstrap — shorthand для проверки без интереса к виду.
func IsBootstrap(path string) bool {
	_, ok := BootstrapKindOf(path)
	return ok
}
