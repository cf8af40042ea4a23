// Package httpapi serves the login, token refresh, logout and profile endpoints on
// top of zikauth.Engine.
//
// Browser clients (X-Client-Type: web, or no client type at login) receive their
// credentials as four cookies: access_token, refresh_token, session_id and the
// script-readable csrf_token. Mobile clients receive the same values in a JSON body
// and replay them in headers.
package httpapi
