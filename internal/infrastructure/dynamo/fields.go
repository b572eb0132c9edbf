package dynamo

// DynamoDB attribute and index names used by the credential store.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	attrUserID           = "user_id"
	attrUsername         = "username"
	attrEmail            = "email"
	attrIsVerified       = "is_verified"
	attrVerificationCode = "verification_code"
	attrVerificationExp  = "verification_code_expiry"
	attrUpdatedAt        = "updated_at"
	attrUniqueKey        = "unique_key"

	indexUsername = "username-index"
	indexEmail    = "email-index"
)
