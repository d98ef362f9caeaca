package status

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/udisondev/xilogin/internal/session"
)

// listenerStatus — одна строка на listener.
type listenerStatus struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Truncate(time.Second).String(),
	})
}

// handleSessions reports directory sizes and registered clients per listener.
func (s *Server) handleSessions(c *gin.Context) {
	listeners := make([]listenerStatus, 0, 3)
	for _, srv := range s.lobby.Listeners() {
		st := listenerStatus{Name: srv.Name(), Clients: srv.ClientCount()}
		if addr := srv.Addr(); addr != nil {
			st.Address = addr.String()
		}
		listeners = append(listeners, st)
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions":  s.lobby.Sessions().Stats(),
		"listeners": listeners,
	})
}

func (s *Server) handleActiveSessions(c *gin.Context) {
	active := s.lobby.Sessions().ActiveSessions()
	if active == nil {
		active = []session.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}

// connection — где сейчас подключён аккаунт.
type connection struct {
	Listener string `json:"listener"`
	Remote   string `json:"remote"`
	ConnID   string `json:"conn_id"`
}

// handleAccount lists the listeners holding a registered socket for the account.
func (s *Server) handleAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	accountID := uint32(id)

	conns := make([]connection, 0, 3)
	for _, srv := range s.lobby.Listeners() {
		if client, ok := srv.Lookup(accountID); ok {
			conns = append(conns, connection{
				Listener: srv.Name(),
				Remote:   client.RemoteIP(),
				ConnID:   client.ID().String(),
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":  accountID,
		"connections": conns,
	})
}

func (s *Server) handleNotifyMaintenance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sent": s.lobby.NotifyMaintenance()})
}
