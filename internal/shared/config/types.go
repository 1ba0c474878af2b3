package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig configures bearer-token claim extraction. The engine does
// not issue tokens; it only verifies the signature and reads claims.
type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	ClaimsKey string `mapstructure:"claims_key"`
}

// CacheConfig holds TTLs for the three permission cache maps.
type CacheConfig struct {
	SubjectTTLMinutes int `mapstructure:"subject_ttl_minutes"`
	RoleTTLMinutes    int `mapstructure:"role_ttl_minutes"`
	ClaimTTLMinutes   int `mapstructure:"claim_ttl_minutes"`
}

func (c *CacheConfig) SubjectTTL() time.Duration {
	return time.Duration(c.SubjectTTLMinutes) * time.Minute
}

func (c *CacheConfig) RoleTTL() time.Duration {
	return time.Duration(c.RoleTTLMinutes) * time.Minute
}

func (c *CacheConfig) ClaimTTL() time.Duration {
	return time.Duration(c.ClaimTTLMinutes) * time.Minute
}

// AppRoleConfig configures the permission-resolution engine itself.
// AdminClaims are the identity claims that activate the protected
// system_admin role. They live in configuration, not in the role row,
// so admin access survives a broken or inconsistent role table.
type AppRoleConfig struct {
	AdminClaims       []string `mapstructure:"admin_claims"`
	DefaultRoleTools  []string `mapstructure:"default_role_tools"`
	DefaultRoleModels []string `mapstructure:"default_role_models"`
	DefaultRoleTier   string   `mapstructure:"default_role_tier"`
}
