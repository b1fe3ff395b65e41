package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized         = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidParticipantID = Definition{Code: "INVALID_PARTICIPANT_ID", Message: "Invalid participant ID format"}
	InvalidRequest       = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	TooManyRequests      = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// 参与者相关错误。
var (
	ParticipantNotFound   = Definition{Code: "PARTICIPANT_NOT_FOUND", Message: "Participant not found"}
	ParticipantIneligible = Definition{Code: "PARTICIPANT_INELIGIBLE", Message: "Participant is not eligible for daily checks"}
	ActivitySourceMissing = Definition{Code: "ACTIVITY_SOURCE_MISSING", Message: "GitHub account not linked"}
)

// 每日检查相关错误。
var (
	CheckDateInvalid     = Definition{Code: "CHECK_DATE_INVALID", Message: "Check date invalid"}
	CheckDateStale       = Definition{Code: "CHECK_DATE_STALE", Message: "A later day has already been checked"}
	CheckConflict        = Definition{Code: "CHECK_CONFLICT", Message: "Check already claimed by another caller"}
	VerificationFailed   = Definition{Code: "VERIFICATION_FAILED", Message: "Could not determine activity"}
	PersistenceFailed    = Definition{Code: "PERSISTENCE_FAILED", Message: "Could not persist check result"}
	BatchAlreadyRunning  = Definition{Code: "BATCH_ALREADY_RUNNING", Message: "Batch already running"}
	PostTextInvalid      = Definition{Code: "POST_TEXT_INVALID", Message: "Post text empty or too long"}
	PostCredentialAbsent = Definition{Code: "POST_CREDENTIAL_ABSENT", Message: "Posting credential not linked"}
)

// Webhook 相关错误。
var (
	WebhookSignatureInvalid = Definition{Code: "WEBHOOK_SIGNATURE_INVALID", Message: "Webhook signature invalid"}
	WebhookPayloadInvalid   = Definition{Code: "WEBHOOK_PAYLOAD_INVALID", Message: "Webhook payload invalid"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:            Unauthorized,
	InvalidParticipantID.Code:    InvalidParticipantID,
	InvalidRequest.Code:          InvalidRequest,
	TooManyRequests.Code:         TooManyRequests,
	ParticipantNotFound.Code:     ParticipantNotFound,
	ParticipantIneligible.Code:   ParticipantIneligible,
	ActivitySourceMissing.Code:   ActivitySourceMissing,
	CheckDateInvalid.Code:        CheckDateInvalid,
	CheckDateStale.Code:          CheckDateStale,
	CheckConflict.Code:           CheckConflict,
	VerificationFailed.Code:      VerificationFailed,
	PersistenceFailed.Code:       PersistenceFailed,
	BatchAlreadyRunning.Code:     BatchAlreadyRunning,
	PostTextInvalid.Code:         PostTextInvalid,
	PostCredentialAbsent.Code:    PostCredentialAbsent,
	WebhookSignatureInvalid.Code: WebhookSignatureInvalid,
	WebhookPayloadInvalid.Code:   WebhookPayloadInvalid,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
