package rtc

import (
	"github.com/dkeye/Huddle/internal/config"
	"github.com/pion/webrtc/v4"
	"github.com/samber/lo"
)

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// WebRTCConfig is the peer configuration handed to browsers so both ends of
// a relayed call gather candidates against the same servers.
func WebRTCConfig(servers []config.ICEServer) webrtc.Configuration {
	servers = lo.Filter(servers, func(s config.ICEServer, _ int) bool { return len(s.URLs) > 0 })
	if len(servers) == 0 {
		return DefaultWebRTCConfig()
	}
	return webrtc.Configuration{
		ICEServers: lo.Map(servers, func(s config.ICEServer, _ int) webrtc.ICEServer {
			out := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
			if s.Credential != "" {
				out.Credential = s.Credential
			}
			return out
		}),
	}
}
