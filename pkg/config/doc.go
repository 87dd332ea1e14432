// Package config loads the rtxctl inventory and application settings.
//
// The file is YAML, read with viper so every scalar key can be overridden
// from the environment (RTXCTL_STORE_PATH, RTXCTL_FLEET_MAX_PARALLEL, ...).
// A file that exists must declare config_version; a missing file yields
// DefaultConfig.
//
//	config_version: 1
//	defaults:
//	  user: admin
//	  password: ${RTX_PASSWORD}
//	  become_password: ${RTX_ADMIN_PASSWORD}
//	devices:
//	  - name: rtx1
//	    host: 192.168.100.1
//	    groups: [branch]
//	  - name: rtx2
//	    host: 192.168.100.2
//	    charset: sjis
//	policy:
//	  allow_credential_changes: false
//
// Secrets and paths may reference environment variables with $VAR or
// ${VAR}. Each device inherits every field it leaves empty from defaults,
// and Device.SSHConfig turns the result into a transport configuration.
package config
