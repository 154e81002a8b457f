package config

import (
	"encoding/json"
	"errors"
	"os"
)

// Config is the process-wide configuration for a broker node's session
// store binding: where the shared KVS lives, and how this node identifies
// itself within the cluster keyspace.
type Config struct {
	KVS struct {
		// Binding selects the registered database.Factory this node opens
		// its KVS connection through (see internal/database.RegisterBinding).
		// Defaults to "redis" when left blank.
		Binding         string `json:"binding"`
		Addr            string `json:"addr"`
		Username        string `json:"username"`
		Password        string `json:"password"`
		DB              int    `json:"db"`
		UseTLS          bool   `json:"use_tls"`
		DialTimeout     string `json:"dial_timeout"`
		ReadTimeout     string `json:"read_timeout"`
		WriteTimeout    string `json:"write_timeout"`
		PoolSize        int    `json:"pool_size"`
		MinIdleConns    int    `json:"min_idle_conns"`
		ConnMaxIdleTime string `json:"conn_max_idle_time"`
	} `json:"kvs"`
	// Namespace prefixes every key this node writes, so several clusters
	// can share one KVS keyspace without collision.
	Namespace string `json:"namespace"`
	DebugMode bool   `json:"debug_mode"`
	AppName   string `json:"app_name"`
	NodeID    string `json:"node_id"`
}

var config Config
var initialized = false

func ReadConfig() (Config, error) {
	bytes, err := os.ReadFile("config.json")

	if err != nil {
		writer, _ := os.OpenFile("config.json", os.O_WRONLY|os.O_CREATE, 0777)
		data, _ := json.MarshalIndent(config, "", "\t")
		_, _ = writer.Write(data)
		_ = writer.Close()
		return config, errors.New("the configuration file does not exist and has been created. Please try again after editing the configuration file")
	}

	err = json.Unmarshal(bytes, &config)

	if err != nil {
		return config, errors.New("the configuration file does not contain valid JSON")
	}

	initialized = true
	return config, nil
}

func GetConfig() (Config, error) {
	if initialized {
		return config, nil
	}
	return ReadConfig()
}
