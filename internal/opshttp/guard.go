package opshttp

import (
	"net"
	"net/http"
	"net/netip"

	"github.com/keithlinneman/ikcamp-web/internal/log"
)

// requireNonPublicNetwork rejects peers outside loopback, private and
// link-local ranges, and any request that went through a proxy. The admin
// port must never be reachable through the public load balancer.
func requireNonPublicNetwork(L log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-For") != "" || r.Header.Get("Forwarded") != "" {
			L.Warn(r.Context(), "admin request rejected: forwarded", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if !nonPublicPeer(r.RemoteAddr) {
			L.Warn(r.Context(), "admin request rejected: public peer", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func nonPublicPeer(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
