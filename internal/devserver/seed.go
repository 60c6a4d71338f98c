package devserver

import (
	"fmt"
	"time"
)

// Seed fills an empty store with a few users who follow each other and
// enough posts to page through. Every seeded user has password "password".
func Seed(s *Store, postsPerUser int) error {
	names := []string{"alice", "bob", "carol"}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := s.AddUser(name, name+"@example.com", "password")
		if err != nil {
			return fmt.Errorf("seed user %s: %w", name, err)
		}
		ids = append(ids, id)
	}

	s.Follow(ids[0], ids[1])
	s.Follow(ids[0], ids[2])
	s.Follow(ids[1], ids[0])

	start := time.Now().Add(-time.Duration(postsPerUser*len(ids)) * time.Hour)
	n := 0
	for i := 0; i < postsPerUser; i++ {
		for j, id := range ids {
			at := start.Add(time.Duration(n) * time.Hour)
			s.mu.Lock()
			s.now = func() time.Time { return at }
			s.mu.Unlock()
			caption := fmt.Sprintf("%s's photo #%d", names[j], i+1)
			if _, err := s.AddPost(id, fmt.Sprintf("/media/seed-%d.jpg", n), caption); err != nil {
				return fmt.Errorf("seed post: %w", err)
			}
			n++
		}
	}
	s.mu.Lock()
	s.now = time.Now
	s.mu.Unlock()
	return nil
}
