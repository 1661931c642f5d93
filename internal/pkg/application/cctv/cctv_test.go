package cctv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database/footage"
	"github.com/matryer/is"
)

func TestUploadStoresFileURLAsVideoURL(t *testing.T) {
	is, ctx, svc := testSetup(t)

	size := 12.5
	duration := 29.6

	f, err := svc.Upload(ctx, Upload{FileURL: "https://cdn/clip.mp4", FileName: "clip.mp4", FileSize: &size, Duration: &duration})
	is.NoErr(err)
	is.Equal(f.VideoURL, "https://cdn/clip.mp4")
	is.Equal(*f.FileName, "clip.mp4")
	is.Equal(*f.FileSizeMB, 12.5)
	is.Equal(*f.DurationSeconds, 30)
	is.True(f.Notes == nil)
}

func TestUploadRequiresURLAndName(t *testing.T) {
	is, ctx, svc := testSetup(t)

	_, err := svc.Upload(ctx, Upload{FileURL: "https://cdn/clip.mp4"})
	is.True(errors.Is(err, ErrMissingUploadFields))

	_, err = svc.Upload(ctx, Upload{FileName: "clip.mp4"})
	is.True(errors.Is(err, ErrMissingUploadFields))
}

func TestRegisterRequiresVideoURL(t *testing.T) {
	is, ctx, svc := testSetup(t)

	_, err := svc.Register(ctx, Registration{})
	is.True(errors.Is(err, ErrMissingVideoURL))

	empty := ""
	f, err := svc.Register(ctx, Registration{VideoURL: "rtsp://cam/1", ThumbnailURL: &empty})
	is.NoErr(err)
	is.True(f.ThumbnailURL == nil)

	list, err := svc.List(ctx)
	is.NoErr(err)
	is.Equal(len(list), 1)
}

func testSetup(t *testing.T) (*is.I, context.Context, FootageService) {
	is := is.New(t)
	ctx := context.Background()

	repo, err := footage.NewFootageRepository(database.NewSQLiteConnector(ctx))
	is.NoErr(err)

	return is, ctx, New(repo, WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }))
}
