package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	SQLite    SQLiteConfig
	Labels    LabelsConfig
	Features  FeaturesConfig
	Training  TrainingConfig
	Retention RetentionConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
}

type SQLiteConfig struct {
	Path          string
	BusyTimeoutMS int
}

type LabelsConfig struct {
	Timezone string
}

type FeaturesConfig struct {
	SetVersion string
	OnState    string
}

type TrainingConfig struct {
	MinLabeledRows int
	MinLabeledDays int
	HazardRate     float64
}

type RetentionConfig struct {
	RawDays     int
	FeatureDays int
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/ha-ml-data-layer")

	viper.SetEnvPrefix("ML_DATA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("sqlite.path", "./data/ml_data_layer.db")
	viper.SetDefault("sqlite.busyTimeoutMS", 5000)

	viper.SetDefault("labels.timezone", "UTC")

	viper.SetDefault("features.setVersion", "v1")
	viper.SetDefault("features.onState", "on")

	viper.SetDefault("training.minLabeledRows", 20)
	viper.SetDefault("training.minLabeledDays", 5)
	viper.SetDefault("training.hazardRate", 0.1)

	viper.SetDefault("retention.rawDays", 30)
	viper.SetDefault("retention.featureDays", 90)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", ":9109")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
