package config

// WithPort sets the HTTP listen port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port != "" {
			c.Port = port
		}
		return nil
	}
}

// WithEnvironment sets the deployment environment name
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env != "" {
			c.Environment = env
		}
		return nil
	}
}

// WithDatabase configures the repository backend
func WithDatabase(dbType, dbURL string) Option {
	return func(c *ServerConfig) error {
		if dbType != "" {
			c.DatabaseType = dbType
		}
		c.DatabaseURL = dbURL
		return nil
	}
}

// WithDBSchema sets the Postgres schema
func WithDBSchema(schema string) Option {
	return func(c *ServerConfig) error {
		if schema != "" {
			c.DBSchema = schema
		}
		return nil
	}
}

// WithStorageBackend registers a storage backend configuration, replacing
// any previously registered backend of the same name
func WithStorageBackend(name, backendType string, backendConfig map[string]interface{}) Option {
	return func(c *ServerConfig) error {
		if backendConfig == nil {
			backendConfig = map[string]interface{}{}
		}
		for i, backend := range c.StorageBackends {
			if backend.Name == name {
				c.StorageBackends[i] = StorageBackendConfig{Name: name, Type: backendType, Config: backendConfig}
				return nil
			}
		}
		c.StorageBackends = append(c.StorageBackends, StorageBackendConfig{
			Name:   name,
			Type:   backendType,
			Config: backendConfig,
		})
		return nil
	}
}

// WithDefaultStorageBackend selects which registered backend is the default
func WithDefaultStorageBackend(name string) Option {
	return func(c *ServerConfig) error {
		if name != "" {
			c.DefaultStorageBackend = name
		}
		return nil
	}
}

// WithJWTSecret sets the JWT signing secret for the API
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithEventLogging toggles the slog-backed event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}
