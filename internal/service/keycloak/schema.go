package keycloak

// Representations of the realm objects carried in a snapshot. Field names
// follow the admin API's JSON, so exported data can be replayed verbatim.

type ClientRepresentation struct {
	ClientID     string   `json:"clientId"`
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	RootURL      string   `json:"rootUrl,omitempty"`
	BaseURL      string   `json:"baseUrl,omitempty"`
	RedirectURIs []string `json:"redirectUris,omitempty"`
	Enabled      bool     `json:"enabled"`
}

type UserRepresentation struct {
	Username      string              `json:"username"`
	Email         string              `json:"email,omitempty"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes,omitempty"`
}

type GroupRepresentation struct {
	ID         string                `json:"id,omitempty"`
	Name       string                `json:"name"`
	Path       string                `json:"path,omitempty"`
	Attributes map[string][]string   `json:"attributes,omitempty"`
	SubGroups  []GroupRepresentation `json:"subGroups,omitempty"`
}

type RoleRepresentation struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Composite   bool   `json:"composite"`
	ClientRole  bool   `json:"clientRole"`
	ContainerID string `json:"containerId,omitempty"`
}

type IdentityProviderRepresentation struct {
	Alias                    string            `json:"alias"`
	DisplayName              string            `json:"displayName,omitempty"`
	ProviderID               string            `json:"providerId"`
	Enabled                  bool              `json:"enabled"`
	TrustEmail               bool              `json:"trustEmail"`
	StoreToken               bool              `json:"storeToken"`
	AddReadTokenRoleOnCreate bool              `json:"addReadTokenRoleOnCreate"`
	Config                   map[string]string `json:"config,omitempty"`
}
