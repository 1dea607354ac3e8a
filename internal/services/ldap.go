package services

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/huangang/projecthub/internal/config"
)

// DirectoryAuthenticator verifies credentials against an external directory.
type DirectoryAuthenticator interface {
	Authenticate(login, password string) (*LDAPUser, error)
}

type LDAPUser struct {
	DN        string
	Email     string
	FirstName string
	LastName  string
}

type LDAPService struct {
	config config.LDAPConfig
}

func NewLDAPService(cfg config.LDAPConfig) *LDAPService {
	return &LDAPService{config: cfg}
}

// Authenticate binds with the service account, finds the entry matching
// UserFilter and re-binds as that entry to check the password.
func (s *LDAPService) Authenticate(login, password string) (*LDAPUser, error) {
	if !s.config.Enabled {
		return nil, fmt.Errorf("LDAP is not enabled")
	}
	if password == "" {
		return nil, fmt.Errorf("invalid credentials")
	}

	scheme := "ldap"
	if s.config.UseSSL {
		scheme = "ldaps"
	}
	url := fmt.Sprintf("%s://%s:%d", scheme, s.config.Host, s.config.Port)

	conn, err := ldap.DialURL(url,
		ldap.DialWithDialer(&net.Dialer{Timeout: 5 * time.Second}),
		ldap.DialWithTLSConfig(&tls.Config{ServerName: s.config.Host}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer conn.Close()
	conn.SetTimeout(10 * time.Second)

	if s.config.BindDN != "" {
		if err := conn.Bind(s.config.BindDN, s.config.BindPassword); err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	searchRequest := ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		fmt.Sprintf(s.config.UserFilter, ldap.EscapeFilter(login)),
		[]string{"dn", "mail", "givenName", "sn", "cn"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}
	if len(result.Entries) != 1 {
		return nil, fmt.Errorf("invalid credentials")
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	user := &LDAPUser{
		DN:        entry.DN,
		Email:     entry.GetAttributeValue("mail"),
		FirstName: entry.GetAttributeValue("givenName"),
		LastName:  entry.GetAttributeValue("sn"),
	}
	if user.FirstName == "" {
		user.FirstName = entry.GetAttributeValue("cn")
	}
	if user.Email == "" {
		user.Email = login
	}
	return user, nil
}
