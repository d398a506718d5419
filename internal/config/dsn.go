package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
)

// DSNValue returns the gorm DSN: the explicit dsn when set, a file name for
// sqlite, otherwise a go-sql-driver/mysql DSN assembled from the parts.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	if c.isSQLite() {
		return orDefault(c.Name, defaultDBName+".db")
	}

	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	addr := net.JoinHostPort(orDefault(c.Host, defaultDBHost), strconv.Itoa(port))

	params := cleanParams(c.Params)
	setIfMissing(params, "charset", orDefault(c.Charset, defaultDBCharset))
	setIfMissing(params, "parseTime", strconv.FormatBool(c.ParseTime))
	setIfMissing(params, "loc", orDefault(c.Loc, defaultDBLoc))

	user := orDefault(c.User, defaultDBUser)
	password := orDefault(c.Password, defaultDBPassword)
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s", user, password, addr, orDefault(c.Name, defaultDBName))
	if q := params.Encode(); q != "" {
		dsn += "?" + q
	}
	return dsn
}

// URLValue returns a redis:// or rediss:// URL for go-redis ParseURL.
func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}

	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}

	scheme := strings.ToLower(strings.TrimSpace(c.Scheme))
	if scheme != "redis" && scheme != "rediss" {
		scheme = "redis"
		if c.TLS {
			scheme = "rediss"
		}
	}

	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(orDefault(c.Host, defaultRedisHost), strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	username := strings.TrimSpace(c.Username)
	switch password := strings.TrimSpace(c.Password); {
	case password != "":
		u.User = neturl.UserPassword(username, password)
	case username != "":
		u.User = neturl.User(username)
	}
	if params := cleanParams(c.Params); len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func (c DatabaseRuntimeConfig) isSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(c.Driver), "sqlite")
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// cleanParams drops entries whose key or value is blank.
func cleanParams(in map[string]string) neturl.Values {
	out := neturl.Values{}
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out.Set(k, v)
		}
	}
	return out
}

func setIfMissing(v neturl.Values, key, value string) {
	if v.Get(key) == "" {
		v.Set(key, value)
	}
}
