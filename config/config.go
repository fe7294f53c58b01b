// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/postmortem/internal/extract"
	"github.com/cardinalhq/postmortem/internal/report"
)

// Config aggregates configuration for the application.
type Config struct {
	Format   string       `mapstructure:"format"`
	QueryKey string       `mapstructure:"query_key"`
	Report   ReportConfig `mapstructure:"report"`
	S3       S3Config     `mapstructure:"s3"`
}

// ReportConfig tunes the content of the rendered reports.
type ReportConfig struct {
	ReducerPrefix   string   `mapstructure:"reducer_prefix"`
	HistogramBins   int      `mapstructure:"histogram_bins"`
	NotableCounters []string `mapstructure:"notable_counters"`
}

// S3Config is used when the input is an s3:// location.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Format:   string(extract.FormatTez),
		QueryKey: report.DefaultOptions().QueryKey,
		Report: ReportConfig{
			ReducerPrefix:   report.DefaultReducerPrefix,
			HistogramBins:   report.DefaultHistogramBins,
			NotableCounters: append([]string(nil), report.DefaultNotableCounters...),
		},
	}
}

// Load reads configuration from a file and environment variables.
// When path is empty, an optional "config" file in the working directory
// is used. Environment variables use the prefix "POSTMORTEM" and the dot
// character in keys is replaced by an underscore. For example,
// "report.reducer_prefix" becomes "POSTMORTEM_REPORT_REDUCER_PREFIX".
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("POSTMORTEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist; the default one is optional.
		if path != "" {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	// Decode lists into an empty slice so a shorter list replaces the default.
	defaultCounters := cfg.Report.NotableCounters
	cfg.Report.NotableCounters = nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if s := v.GetString("report.notable_counters"); s != "" {
		cfg.Report.NotableCounters = splitList(s)
	}
	if len(cfg.Report.NotableCounters) == 0 {
		cfg.Report.NotableCounters = defaultCounters
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
