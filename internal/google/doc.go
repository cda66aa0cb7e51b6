// Package google provides OAuth2 authentication and credential storage for
// the Gmail API.
//
// The Authenticator resolves a token source in three steps: use the stored
// credential if it is still valid, refresh it when it carries a refresh
// token, otherwise run an interactive consent flow. Every new or refreshed
// token is written back to the CredentialStore.
//
// Credentials are persisted as versioned JSON (see Credential) with mode
// 0600. Files written by older releases that hold a bare oauth2.Token are
// read as version 0 and upgraded on the next save.
package google
