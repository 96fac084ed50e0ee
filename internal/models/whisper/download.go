package whisper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

var (
	ErrDownload  = errors.New("model download failed")
	ErrRequest   = fmt.Errorf("%w: request", ErrDownload)
	ErrStatus    = fmt.Errorf("%w: unexpected status", ErrDownload)
	ErrIO        = fmt.Errorf("%w: i/o", ErrDownload)
	ErrCancelled = fmt.Errorf("%w: cancelled", ErrDownload)
)

const chunkSize = 32 * 1024

// TempSuffix is appended to the destination path while a download is in progress
const TempSuffix = ".downloading"

// CancelToken is a cooperative cancellation flag checked after every chunk
type CancelToken struct {
	cancelled atomic.Bool
}

func (c *CancelToken) Cancel() { c.cancelled.Store(true) }

func (c *CancelToken) Cancelled() bool {
	return c != nil && c.cancelled.Load()
}

// DownloadProgress is reported at most once per whole percent, plus a final 100%
type DownloadProgress struct {
	ModelID         string
	DownloadedBytes int64
	TotalBytes      int64
	Percent         int
}

// fetch downloads url into dest via dest+TempSuffix. An existing temp file is resumed
// with a Range request. On cancellation the temp file is left in place.
func fetch(ctx context.Context, client *http.Client, url, dest string, cancel *CancelToken, report func(done, total int64, percent int)) error {
	tempPath := dest + TempSuffix

	var offset int64
	if fi, err := os.Stat(tempPath); err == nil {
		offset = fi.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	var total int64
	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusPartialContent:
		total = totalFromContentRange(resp.Header.Get("Content-Range"))
		flags |= os.O_APPEND
	case http.StatusOK:
		// server ignored the range (or there was none): start over
		if offset > 0 {
			log.Printf("whisper-download: server ignored range, restarting %s", dest)
		}
		offset = 0
		total = resp.ContentLength
		flags |= os.O_TRUNC
	case http.StatusRequestedRangeNotSatisfiable:
		// the previous run got every byte but never renamed the temp file
		if offset > 0 && totalFromContentRange(resp.Header.Get("Content-Range")) == offset {
			if err := os.Rename(tempPath, dest); err != nil {
				return fmt.Errorf("%w: rename: %v", ErrIO, err)
			}
			report(offset, offset, 100)
			return nil
		}
		// the temp file does not match the remote one; the next attempt starts over
		os.Remove(tempPath)
		return fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	default:
		return fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	if total < 0 {
		total = 0
	}

	f, err := os.OpenFile(tempPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open temp file: %v", ErrIO, err)
	}
	w := bufio.NewWriterSize(f, chunkSize)
	closeFile := func() error {
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	downloaded := offset
	lastPercent := -1
	buf := make([]byte, chunkSize)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				f.Close()
				return fmt.Errorf("%w: write: %v", ErrIO, err)
			}
			downloaded += int64(n)

			if total > 0 {
				percent := int(downloaded * 100 / total)
				if percent != lastPercent {
					lastPercent = percent
					report(downloaded, total, percent)
				}
			}
		}

		if cancel.Cancelled() || ctx.Err() != nil {
			if err := closeFile(); err != nil {
				return fmt.Errorf("%w: flush partial file: %v", ErrIO, err)
			}
			return ErrCancelled
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			closeFile()
			return fmt.Errorf("%w: read body: %v", ErrIO, readErr)
		}
	}

	if err := closeFile(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrIO, err)
	}
	if err := os.Rename(tempPath, dest); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrIO, err)
	}

	if lastPercent != 100 {
		if total == 0 {
			total = downloaded
		}
		report(downloaded, total, 100)
	}
	return nil
}

// totalFromContentRange parses the complete length out of "bytes 100-199/200".
// Returns 0 when the total is absent or "*".
func totalFromContentRange(header string) int64 {
	i := strings.LastIndexByte(header, '/')
	if i < 0 {
		return 0
	}
	total, err := strconv.ParseInt(strings.TrimSpace(header[i+1:]), 10, 64)
	if err != nil {
		return 0
	}
	return total
}
