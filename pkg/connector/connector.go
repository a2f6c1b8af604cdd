// Package connector holds values shared by the HTTP connectors that talk to the connectedcars.io
// backend.
package connector

import "fmt"

// MaxResponseLength caps the maximum byte-length of responses that connectors accept. The bulk
// vehicle query for a large fleet is the biggest payload the client requests.
const MaxResponseLength = 10000000

// DefaultUserAgent is the client identifier sent with every request. The backend expects the
// identifier of the official mobile app.
const DefaultUserAgent = "ConnectedCars/360 CFNetwork/978.0.7 Darwin/18.7.0"

// TenantPrefix is prepended to the account namespace in the x-organization-namespace header.
const TenantPrefix = "semler"

// DefaultNamespace is the namespace used by the Min Volkswagen app.
const DefaultNamespace = "minvolkswagen"

// NamespaceHeader is the header that selects the tenant for both the auth and GraphQL endpoints.
const NamespaceHeader = "x-organization-namespace"

// OrganizationNamespace returns the x-organization-namespace header value for namespace.
func OrganizationNamespace(namespace string) string {
	return fmt.Sprintf("%s:%s", TenantPrefix, namespace)
}
