package common

// AuthorizationHeaderName is the HTTP header carrying the access token,
// either bare or with the BearerPrefix.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the optional scheme prefix of the Authorization header.
const BearerPrefix = "Bearer "
