package models

const (
	MwUserIDKey = "userID"
	MwTokenKey  = "token"

	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)
