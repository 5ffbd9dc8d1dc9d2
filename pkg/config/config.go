// Copyright 2019-2022 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"sigs.k8s.io/yaml"
)

const (
	// DefaultRuntimeConfig is the name of the default configuration.
	DefaultRuntimeConfig = "runtime-config"
)

// Config is a configuration collection, basically a set of configuration Modules.
type Config struct {
	sync.Mutex
	name    string
	notify  []NotifyFn
	modules map[string]*Module
}

// Source describes where configuration data has been acquired from.
type Source string

const (
	// Defaults is the source for built-in default configuration.
	Defaults Source = "default configuration"
	// ConfigFile is a YAML/JSON file configuration source.
	ConfigFile Source = "configuration file"
	// External is an external configuration source.
	External Source = "external configuration"
	// ConfigBackup is a Snapshot, a backup of a previous configuration.
	ConfigBackup Source = "configuration backup"
)

// NotifyFn is the type of a configuration change notification functions.
type NotifyFn func(Event, Source) error

// Event describes the reason why a notification callback has been invoked.
type Event string

const (
	// UpdateEvent is the event type for a configuration update.
	UpdateEvent Event = "updated"
	// RevertEvent is the event type for a configuration rollback.
	RevertEvent Event = "reverted"
)

// Snapshot holds a snapshot of configuration data, used for backup/rollback.
type Snapshot map[string]Data

// configs is used to look up configuration collections by name
var configs = make(map[string]*Config)

// GetConfig looks up the named configuration, creating it if necessary.
func GetConfig(name string) *Config {
	if c, ok := configs[name]; ok {
		return c
	}

	c := &Config{
		name:    name,
		modules: make(map[string]*Module),
	}
	configs[name] = c

	return c
}

// Name returns the name of the configuration.
func (c *Config) Name() string {
	return c.name
}

// Modules returns the names of all modules registered in the configuration.
func (c *Config) Modules() []string {
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Notify notifies configuration changes through all registered notifiers.
func (c *Config) Notify(event Event, source Source) error {
	var err error

	for _, name := range c.Modules() {
		if e := c.modules[name].notifyAll(event, source); e != nil {
			err = configError("%s: configuration rejected by module %s: %v", c.name, name, e)
			if source != ConfigBackup {
				return err
			}
			log.Error("%v", err)
		}
	}

	for _, fn := range c.notify {
		if e := fn(event, source); e != nil {
			err = configError("%s: configuration rejected: %v", c.name, e)
			if source != ConfigBackup {
				return err
			}
			log.Error("%v", err)
		}
	}

	return nil
}

// Reset resets the configuration to its defaults.
func (c *Config) Reset() error {
	c.Lock()
	defer c.Unlock()

	for _, name := range c.Modules() {
		if err := c.modules[name].apply(nil); err != nil {
			return configError("failed to reset module %s: %v", name, err)
		}
	}

	return c.Notify(UpdateEvent, Defaults)
}

// Backup returns a snapshot of the current configuration.
func (c *Config) Backup() (Snapshot, error) {
	snapshot := make(Snapshot)
	for name, m := range c.modules {
		data, err := DataFromObject(m.ptr)
		if err != nil {
			return nil, configError("failed to back up module %s: %v", name, err)
		}
		snapshot[name] = data
	}
	return snapshot, nil
}

// Restore restores a previous snapshot, resetting modules missing from it.
func (c *Config) Restore(snapshot Snapshot) error {
	for _, name := range c.Modules() {
		if err := c.modules[name].apply(snapshot[name]); err != nil {
			return configError("failed to restore module %s: %v", name, err)
		}
	}
	return nil
}

// ParseYAMLFile parses the given YAML file and updates the configuration.
func (c *Config) ParseYAMLFile(path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return configError("failed to read configuration file %s: %v", path, err)
	}

	return c.ParseYAMLData(raw, ConfigFile)
}

// ParseYAMLData parses the given YAML data and updates the configuration.
func (c *Config) ParseYAMLData(raw []byte, source Source) error {
	c.Lock()
	defer c.Unlock()

	data := make(Data)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return configError("failed to parse %s: %v", source, err)
	}

	snapshot := make(Snapshot)
	for _, name := range c.Modules() {
		picked, err := data.pick(name, true)
		if err != nil {
			return configError("%s: module %s: %v", source, name, err)
		}
		snapshot[name] = picked
	}
	if len(data) != 0 {
		return configError("%s: unknown configuration modules/keys: %s", source, data.keys())
	}

	backup, err := c.Backup()
	if err != nil {
		return err
	}

	if err := c.Restore(snapshot); err != nil {
		c.Restore(backup)
		return err
	}

	if err := c.Notify(UpdateEvent, source); err != nil {
		c.Restore(backup)
		c.Notify(RevertEvent, ConfigBackup)
		return err
	}

	log.Debug("configuration updated from %s", source)

	return nil
}
