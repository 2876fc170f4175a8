package redis

// Redis key layout for the definitions mirror.
const (
	// KeyPrefixDefinition is the prefix for service definition keys
	KeyPrefixDefinition = "bifrost:service:"
	// KeyAllDefinitions is the key for the set of all service names
	KeyAllDefinitions = "bifrost:services:all"
)

// DefinitionKey returns the redis key for a service definition by name
func DefinitionKey(name string) string {
	return KeyPrefixDefinition + name
}

// AllDefinitionsKey returns the key for the set of all service names
func AllDefinitionsKey() string {
	return KeyAllDefinitions
}
