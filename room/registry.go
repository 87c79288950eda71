package room

// SessionRegistry maps live connections of one room onto canonical user
// names. It belongs to a single actor and is never shared.
type SessionRegistry struct {
	users   map[*Client]string
	clients []*Client
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{users: map[*Client]string{}}
}

func (r *SessionRegistry) Add(c *Client, user string) {
	if _, ok := r.users[c]; ok {
		return
	}
	r.users[c] = user
	r.clients = append(r.clients, c)
}

// Remove reports whether c was registered.
func (r *SessionRegistry) Remove(c *Client) bool {
	if _, ok := r.users[c]; !ok {
		return false
	}
	delete(r.users, c)
	for i, other := range r.clients {
		if other == c {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			break
		}
	}
	return true
}

func (r *SessionRegistry) UserOf(c *Client) (string, bool) {
	user, ok := r.users[c]
	return user, ok
}

func (r *SessionRegistry) HasUser(user string) bool {
	for _, u := range r.users {
		if u == user {
			return true
		}
	}
	return false
}

// Clients returns a copy in registration order.
func (r *SessionRegistry) Clients() []*Client {
	return append([]*Client(nil), r.clients...)
}

func (r *SessionRegistry) ClientsOf(user string) []*Client {
	var out []*Client
	for _, c := range r.clients {
		if r.users[c] == user {
			out = append(out, c)
		}
	}
	return out
}

func (r *SessionRegistry) Len() int {
	return len(r.clients)
}
