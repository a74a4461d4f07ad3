package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（资格不符、重复申请、参数不合法等）
// - 5xxx：系统错误（需要中断流程）
const (
	OK = 0

	NotEligible    = 4001
	AlreadyApplied = 4002
	NotApplied     = 4003
	NotFound       = 4004
	InvalidStatus  = 4005
	InvalidJob     = 4006
	InvalidAnswers = 4007
	InvalidProfile = 4008
	Forbidden      = 4030
	Degraded       = 4100

	SystemError = 5000
	Persistence = 5001
)
