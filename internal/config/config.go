package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda "dev".
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Provider: el identity provider upstream (Asgardeo o compatible).
	Provider struct {
		TokenURL     string   `yaml:"token_url"`
		JWKSURL      string   `yaml:"jwks_url"`
		Issuer       string   `yaml:"issuer"`
		SCIM2URL     string   `yaml:"scim2_url"`
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		Scopes       []string `yaml:"scopes"`
		Timeout      string   `yaml:"timeout"`
	} `yaml:"provider"`

	// Groups: IDs de grupos en el provider. AdminID identifica el grupo protegido.
	Groups struct {
		AdminID          string `yaml:"admin_id"`
		SupplierID       string `yaml:"supplier_id"`
		WarehouseStaffID string `yaml:"warehouse_staff_id"`
	} `yaml:"groups"`

	JWKS struct {
		// Intervalo mínimo entre refetches por kid desconocido.
		RefetchMinInterval string `yaml:"refetch_min_interval"`
	} `yaml:"jwks"`
}

// defaultScopes son los scopes de gestión SCIM2 que pide el token M2M.
var defaultScopes = []string{
	"internal_user_mgt_create",
	"internal_user_mgt_list",
	"internal_user_mgt_view",
	"internal_user_mgt_delete",
	"internal_user_mgt_update",
	"internal_group_mgt_update",
	"internal_group_mgt_view",
}

// Load lee el YAML (si path != ""), aplica overrides de entorno y defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyEnv()

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3006"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Provider.Scopes) == 0 {
		c.Provider.Scopes = defaultScopes
	}
	if c.Provider.Timeout == "" {
		c.Provider.Timeout = "15s"
	}
	if c.JWKS.RefetchMinInterval == "" {
		c.JWKS.RefetchMinInterval = "30s"
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnv aplica overrides desde variables de entorno.
// Los nombres ASGARDEO_* se mantienen por compatibilidad con despliegues existentes.
func (c *Config) applyEnv() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	} else if p, ok := getEnvStr("PORT"); ok {
		host, _ := getEnvStr("HOST")
		c.Server.Addr = host + ":" + p
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	if v, ok := getEnvStr("ASGARDEO_TOKEN_URL"); ok {
		c.Provider.TokenURL = v
	}
	if v, ok := getEnvStr("ASGARDEO_JWKS_URL"); ok {
		c.Provider.JWKSURL = v
	}
	if v, ok := getEnvStr("ASGARDEO_ISSUER"); ok {
		c.Provider.Issuer = v
	}
	if v, ok := getEnvStr("ASGARDEO_SCIM2_URL"); ok {
		c.Provider.SCIM2URL = v
	}
	if v, ok := getEnvStr("ASGARDEO_CLIENT_ID"); ok {
		c.Provider.ClientID = v
	}
	if v, ok := getEnvStr("ASGARDEO_CLIENT_SECRET"); ok {
		c.Provider.ClientSecret = v
	}
	if v, ok := getEnvCSV("ASGARDEO_SCOPES"); ok {
		c.Provider.Scopes = v
	}
	if v, ok := getEnvStr("ASGARDEO_GROUP_ID_ADMIN"); ok {
		c.Groups.AdminID = v
	}
	if v, ok := getEnvStr("ASGARDEO_GROUP_ID_SUPPLIER"); ok {
		c.Groups.SupplierID = v
	}
	if v, ok := getEnvStr("ASGARDEO_GROUP_ID_WAREHOUSE_STAFF"); ok {
		c.Groups.WarehouseStaffID = v
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.Provider.TokenURL == "" {
		missing = append(missing, "provider.token_url")
	}
	if c.Provider.JWKSURL == "" {
		missing = append(missing, "provider.jwks_url")
	}
	if c.Provider.Issuer == "" {
		missing = append(missing, "provider.issuer")
	}
	if c.Provider.SCIM2URL == "" {
		missing = append(missing, "provider.scim2_url")
	}
	if c.Provider.ClientID == "" {
		missing = append(missing, "provider.client_id")
	}
	if c.Provider.ClientSecret == "" {
		missing = append(missing, "provider.client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: faltan campos requeridos: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsDev indica si corremos en modo desarrollo (errores con detalle al cliente).
func (c *Config) IsDev() bool {
	return strings.ToLower(c.App.Env) != "prod"
}

// ProviderTimeout parsea el timeout de llamadas upstream.
func (c *Config) ProviderTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Provider.Timeout); err == nil && d > 0 {
		return d
	}
	return 15 * time.Second
}

// JWKSRefetchMinInterval parsea la ventana de throttle por kid desconocido.
func (c *Config) JWKSRefetchMinInterval() time.Duration {
	if d, err := time.ParseDuration(c.JWKS.RefetchMinInterval); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
