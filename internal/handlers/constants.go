package handlers

import "time"

const (
	OAuthStateCookieName    = "oauth_state"
	OAuthProviderCookieName = "oauth_provider"
	oauthCookieTTL          = 10 * time.Minute

	// maxBodyBytes caps JSON request bodies
	maxBodyBytes = 1 << 20
)

// Error codes carried in the response envelope
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeInvalidInvite   = "INVALID_INVITE_CODE"
	CodeAlreadyMember   = "ALREADY_MEMBER"
	CodeNoFamily        = "NO_FAMILY"
	CodeNotFamilyMember = "NOT_FAMILY_MEMBER"

	CodeInvalidVerification = "INVALID_VERIFICATION_CODE"

	msgInvalidBody = "Invalid request body"
	msgInternal    = "Internal server error"
)
