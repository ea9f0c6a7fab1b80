package web

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkpublisher/showcase/internal/feed"
	"github.com/mkpublisher/showcase/internal/logging"
)

func (ctl *Controller) feed(c *gin.Context) {
	var buf bytes.Buffer
	err := feed.Write(&buf, ctl.catalog.Recent(feed.MaxEntries), feed.Options{BaseURL: ctl.baseURL})
	if err != nil {
		logging.NewLogger(c.Request.Context()).LogError("feed.write", err)
		c.String(http.StatusInternalServerError, "feed unavailable")
		return
	}
	c.Data(http.StatusOK, "application/atom+xml; charset=utf-8", buf.Bytes())
}
