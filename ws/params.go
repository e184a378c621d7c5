package ws

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sonirico/libreg"
)

type (
	OpenConnectionParams struct {
		URL    url.URL
		Header http.Header
	}

	OpenConnectionParamsGetter func(ctx context.Context) (OpenConnectionParams, error)

	// OpenConnectionParamsRepo resolves where to connect on every dial attempt, so that
	// credentials or endpoints may change between reconnects.
	OpenConnectionParamsRepo struct {
		logger libreg.Logger
		getter OpenConnectionParamsGetter
	}
)

func (r OpenConnectionParamsRepo) Get(
	ctx context.Context,
) (params OpenConnectionParams, err error) {
	params, err = r.getter(ctx)
	if err != nil {
		r.logger.Errorf("cannot fetch open connection params: %s", err)
	}
	return
}

func NewOpenConnectionParamsRepo(
	logger libreg.Logger,
	getter OpenConnectionParamsGetter,
) OpenConnectionParamsRepo {
	return OpenConnectionParamsRepo{getter: getter, logger: logger}
}

// NewStaticOpenConnectionParamsRepo always connects to u with header.
func NewStaticOpenConnectionParamsRepo(logger libreg.Logger, u url.URL, header http.Header) OpenConnectionParamsRepo {
	return NewOpenConnectionParamsRepo(logger, func(context.Context) (OpenConnectionParams, error) {
		return OpenConnectionParams{URL: u, Header: header}, nil
	})
}
