package contextKey

// key is unexported so values stored by this package cannot collide with
// other packages' context values.
type key string

// UserIDKey is the request-context key under which the JWT middleware stores
// the authenticated user's id.
const UserIDKey = key("userID")

// JwtErrorKey is the request-context key under which the JWT middleware
// stores a token parsing error.
const JwtErrorKey = key("jwtError")
