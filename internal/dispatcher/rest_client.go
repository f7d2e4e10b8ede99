package dispatcher

import (
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

// RESTClient issues ban and kick calls over raw HTTP, bypassing the gateway
// library's client for the latency-sensitive enforcement path.
type RESTClient struct {
	pool        *HTTPPool
	rateLimiter *RateLimitMonitor
	baseURL     string
	authHeader  string
}

func NewRESTClient(pool *HTTPPool, rateLimiter *RateLimitMonitor, baseURL, token string) *RESTClient {
	return &RESTClient{
		pool:        pool,
		rateLimiter: rateLimiter,
		baseURL:     baseURL,
		authHeader:  "Bot " + token,
	}
}

// ExecuteBan bans the target and returns the call latency in microseconds.
func (rc *RESTClient) ExecuteBan(communityID, targetID, reason string) (int64, error) {
	uri := fmt.Sprintf("%s/guilds/%s/bans/%s", rc.baseURL, communityID, targetID)
	return rc.execute("PUT", uri, "ban", communityID, reason)
}

// ExecuteKick removes the target from the community.
func (rc *RESTClient) ExecuteKick(communityID, targetID, reason string) (int64, error) {
	uri := fmt.Sprintf("%s/guilds/%s/members/%s", rc.baseURL, communityID, targetID)
	return rc.execute("DELETE", uri, "kick", communityID, reason)
}

func (rc *RESTClient) execute(method, uri, route, communityID, reason string) (int64, error) {
	if !rc.rateLimiter.CanExecute(route, communityID) {
		return 0, fmt.Errorf("rate limited on %s for %s", route, communityID)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", rc.authHeader)
	req.Header.Set("X-Audit-Log-Reason", url.QueryEscape(reason))
	req.Header.SetContentType("application/json")

	timer := util.NewMonotonicTimer()
	err := rc.pool.GetClient().DoTimeout(req, resp, 5*time.Second)
	elapsed := timer.ElapsedUs()
	if err != nil {
		return elapsed, fmt.Errorf("%s request failed: %w", route, err)
	}

	rc.rateLimiter.UpdateFromResponse(resp, route, communityID)

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return elapsed, fmt.Errorf("%s returned status %d", route, status)
	}

	return elapsed, nil
}
