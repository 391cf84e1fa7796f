// Package branding centralizes user-facing product naming so services
// and transports present a consistent identity.
package branding

// AppName is the product name shown in server identities and page titles.
const AppName = "Ontogenic.Space"
