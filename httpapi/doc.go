// Package httpapi exposes a tokenlife.Engine over HTTP with a chi router.
//
// Routes:
//
//	POST /auth/login       {identifier, secret}                       200 Response
//	POST /auth/register    bearer + {displayName, dateOfBirth, identityDocument}  201 Response
//	POST /auth/refresh     bearer + {refreshToken[, userName]}        200 Response
//	POST /auth/logout      bearer                                     200 {}
//	GET  /auth/me          bearer (registration token)                200 Response
//	GET  /auth/principal   guarded                                    200 Principal
//
// Token failures and bad credentials answer 401, malformed bodies and
// invalid registration payloads 400, everything else 500. Error bodies are
// {"error": "<message>"}.
package httpapi
