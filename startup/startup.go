package startup

import (
	"flag"
	"fmt"
	"os"

	"code.cloudfoundry.org/lager/v3"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/grouper"
	"github.com/tedsuo/ifrit/sigmon"

	"github.com/funnelmon/funnelmon/config"
	"github.com/funnelmon/funnelmon/helpers"
)

func ParseFlags() string {
	var path string
	flag.StringVar(&path, "c", "", "config file")
	flag.Parse()
	return path
}

func LoadAndValidateConfig(path string) (*config.Config, error) {
	conf, err := config.LoadConfig(path)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stdout, "failed to read config file '%s' : %s\n", path, err.Error())
		return nil, err
	}

	err = conf.Validate()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stdout, "failed to validate configuration : %s\n", err.Error())
		return nil, err
	}

	return conf, nil
}

func InitLogger(loggingConfig *helpers.LoggingConfig, serviceName string) lager.Logger {
	return helpers.InitLoggerFromConfig(loggingConfig, serviceName)
}

func StartServices(logger lager.Logger, members grouper.Members) error {
	monitor := ifrit.Invoke(sigmon.New(grouper.NewOrdered(os.Interrupt, members)))
	logger.Info("started")
	err := <-monitor.Wait()
	if err != nil {
		logger.Error("exited-with-failure", err)
		return err
	}
	logger.Info("exited")
	return nil
}

func ExitOnError(err error, logger lager.Logger, message string, data ...lager.Data) {
	if err != nil {
		if len(data) > 0 {
			logger.Error(message, err, data[0])
		} else {
			logger.Error(message, err)
		}
		os.Exit(1)
	}
}

// Bootstrap provides a complete service initialization
func Bootstrap(serviceName string) (*config.Config, lager.Logger) {
	path := ParseFlags()

	conf, err := LoadAndValidateConfig(path)
	if err != nil {
		os.Exit(1)
	}

	logger := InitLogger(&conf.Logging, serviceName)

	return conf, logger
}
