package helpers

import (
	"net/http"
	"time"

	"code.cloudfoundry.org/cfhttp/v2"

	"github.com/funnelmon/funnelmon/models"
)

func CreateHTTPClient(tlsCerts *models.TLSCerts, requestTimeout time.Duration) (*http.Client, error) {
	opts := []cfhttp.Option{
		cfhttp.WithDialTimeout(30 * time.Second),
		cfhttp.WithIdleConnTimeout(5 * time.Second),
		cfhttp.WithMaxIdleConnsPerHost(200),
	}
	if requestTimeout > 0 {
		opts = append(opts, cfhttp.WithRequestTimeout(requestTimeout))
	}

	tlsConfig, err := tlsCerts.CreateClientConfig()
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		opts = append(opts, cfhttp.WithTLSConfig(tlsConfig))
	}

	return cfhttp.NewClient(opts...), nil
}
