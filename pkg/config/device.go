package config

import (
	"fmt"
	"sort"

	"github.com/rtxops/rtxctl/pkg/transports/ssh"
)

// Merge returns dev with every empty field taken from d. Groups are not
// inherited.
func (d Device) Merge(dev Device) Device {
	out := dev
	if out.Port == 0 {
		out.Port = d.Port
	}
	if out.User == "" {
		out.User = d.User
	}
	if out.Password == "" {
		out.Password = d.Password
	}
	if out.AuthMethod == "" {
		out.AuthMethod = d.AuthMethod
	}
	if out.PrivateKey == "" {
		out.PrivateKey = d.PrivateKey
	}
	if out.Passphrase == "" {
		out.Passphrase = d.Passphrase
	}
	if out.Become == nil {
		out.Become = d.Become
	}
	if out.BecomePassword == "" {
		out.BecomePassword = d.BecomePassword
	}
	if out.Charset == "" {
		out.Charset = d.Charset
	}
	if out.KnownHosts == "" {
		out.KnownHosts = d.KnownHosts
	}
	if out.StrictHostKeyChecking == nil {
		out.StrictHostKeyChecking = d.StrictHostKeyChecking
	}
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = d.ConnectTimeout
	}
	if out.CommandTimeout == 0 {
		out.CommandTimeout = d.CommandTimeout
	}
	if out.ProxyHost == "" {
		out.ProxyHost = d.ProxyHost
		if out.ProxyPort == 0 {
			out.ProxyPort = d.ProxyPort
		}
		if out.ProxyUser == "" {
			out.ProxyUser = d.ProxyUser
		}
	}
	return out
}

// SSHConfig builds the transport configuration for the device. Become
// defaults to on when a become password is present.
func (d Device) SSHConfig() (*ssh.Config, error) {
	cfg := ssh.DefaultConfig(d.Host, d.User)
	if d.Port != 0 {
		cfg.Port = d.Port
	}
	if d.AuthMethod != "" {
		cfg.AuthMethod = ssh.AuthMethod(d.AuthMethod)
	}
	cfg.Password = d.Password
	cfg.PrivateKeyPath = d.PrivateKey
	cfg.PrivateKeyPassphrase = d.Passphrase

	cfg.BecomePassword = d.BecomePassword
	cfg.Become = d.BecomePassword != ""
	if d.Become != nil {
		cfg.Become = *d.Become
	}

	if d.Charset != "" {
		charset, err := ssh.ParseCharset(d.Charset)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", d.Name, err)
		}
		cfg.Charset = charset
	}

	if d.KnownHosts != "" {
		cfg.KnownHostsPath = d.KnownHosts
	}
	if d.StrictHostKeyChecking != nil {
		cfg.StrictHostKeyChecking = *d.StrictHostKeyChecking
	}
	if d.ConnectTimeout > 0 {
		cfg.ConnectionTimeout = d.ConnectTimeout
	}
	if d.CommandTimeout > 0 {
		cfg.CommandTimeout = d.CommandTimeout
	}

	if d.ProxyHost != "" {
		cfg.ProxyHost = d.ProxyHost
		if d.ProxyPort != 0 {
			cfg.ProxyPort = d.ProxyPort
		}
		cfg.ProxyUser = d.ProxyUser
		if cfg.ProxyUser == "" {
			cfg.ProxyUser = d.User
		}
		cfg.ProxyAuthMethod = cfg.AuthMethod
		cfg.ProxyPassword = d.Password
		cfg.ProxyPrivateKeyPath = d.PrivateKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("device %s: %w", d.Name, err)
	}
	return cfg, nil
}

// HasGroup reports whether the device carries the group label.
func (d Device) HasGroup(group string) bool {
	for _, g := range d.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Device returns the inventory entry with the given name.
func (c *Config) Device(name string) (Device, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// Select returns the devices named in names plus every device in one of
// groups, in inventory order and without duplicates. A name that is not in
// the inventory is treated as an ad-hoc host built from Defaults. With no
// names and no groups every device is selected.
func (c *Config) Select(names, groups []string) ([]Device, error) {
	if len(names) == 0 && len(groups) == 0 {
		return append([]Device(nil), c.Devices...), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []Device
	picked := make(map[string]bool)
	for _, d := range c.Devices {
		match := wanted[d.Name]
		for _, g := range groups {
			if d.HasGroup(g) {
				match = true
				break
			}
		}
		if match {
			out = append(out, d)
			picked[d.Name] = true
		}
	}

	var adhoc []string
	for _, n := range names {
		if !picked[n] {
			adhoc = append(adhoc, n)
			picked[n] = true
		}
	}
	sort.Strings(adhoc)
	for _, n := range adhoc {
		out = append(out, c.Defaults.Merge(Device{Name: n, Host: n}))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no devices match groups %v", groups)
	}
	return out, nil
}

// Names returns the device names in order.
func Names(devices []Device) []string {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names
}
