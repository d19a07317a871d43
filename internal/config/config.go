package config

import (
	"os"
	"time"

	"codeberg.org/mutker/printerctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultBaudRate    = 115200
	defaultInterval    = 1.0
	defaultAckTimeout  = 30.0
	defaultReadTimeout = 1.0
)

type Config struct {
	// Port selection: either an explicit device name, or USB attribute
	// criteria resolved through port enumeration.
	Port         string `mapstructure:"port"`
	SerialNumber string `mapstructure:"serial_number"`
	USBVid       string `mapstructure:"usb_vid"`
	USBPid       string `mapstructure:"usb_pid"`
	Product      string `mapstructure:"product"`

	Baud        int     `mapstructure:"baud"`
	Interval    float64 `mapstructure:"interval"`
	AckTimeout  float64 `mapstructure:"ack_timeout"`
	ReadTimeout float64 `mapstructure:"read_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	Debug     bool   `mapstructure:"debug"`
	Verbose   bool   `mapstructure:"verbose"`
	Monitor   bool   `mapstructure:"monitor"`
	ListPorts bool   `mapstructure:"list_ports"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("printerctl", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.String("port", "", "Serial port device (e.g. /dev/ttyACM0)")
	flags.String("serial-number", "", "Match port by USB serial number")
	flags.String("usb-vid", "", "Match port by USB vendor ID")
	flags.String("usb-pid", "", "Match port by USB product ID")
	flags.String("product", "", "Match port by USB product string")
	flags.Int("baud", defaultBaudRate, "Serial baud rate")
	flags.Float64("interval", defaultInterval, "Position poll interval in seconds")
	flags.Float64("ack-timeout", defaultAckTimeout, "Command acknowledgement timeout in seconds")
	flags.Float64("read-timeout", defaultReadTimeout, "Serial read timeout in seconds")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Bool("monitor", false, "Log printer telemetry every interval")
	flags.Bool("list-ports", false, "List available serial ports and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("baud", defaultBaudRate)
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("ack_timeout", defaultAckTimeout)
	v.SetDefault("read_timeout", defaultReadTimeout)
	v.SetDefault("log_level", DefaultLogLevel)

	if configPath := os.Getenv("PRINTERCTL_CONFIG"); configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("printerctl")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").
				WithData(err.Error())
		}
	}

	// Flags set on the command line override config file values.
	flags.Visit(func(f *pflag.Flag) {
		v.Set(flagToKey(f.Name), f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func flagToKey(name string) string {
	key := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '-' {
			key = append(key, '_')
			continue
		}
		key = append(key, name[i])
	}

	return string(key)
}

func (c *Config) validate() error {
	errFactory := errors.New()

	if c.Baud <= 0 {
		return errFactory.WithData(errors.ErrInvalidBaudRate, c.Baud)
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.AckTimeout <= 0 || c.ReadTimeout <= 0 {
		return errFactory.New(errors.ErrInvalidTimeout)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// PollInterval returns the position poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// AckTimeoutDuration returns the acknowledgement timeout as a duration.
func (c *Config) AckTimeoutDuration() time.Duration {
	return time.Duration(c.AckTimeout * float64(time.Second))
}

// ReadTimeoutDuration returns the serial read timeout as a duration.
func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout * float64(time.Second))
}
