package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// UserDirectory maps user ids to users and remembers insertion order, which
// decides the winner when a username appears more than once.
type UserDirectory struct {
	order []string
	byID  map[string]User
}

func NewUserDirectory() UserDirectory {
	return UserDirectory{byID: map[string]User{}}
}

func (d *UserDirectory) Add(u User) {
	if d.byID == nil {
		d.byID = map[string]User{}
	}
	if _, ok := d.byID[u.ID]; !ok {
		d.order = append(d.order, u.ID)
	}
	d.byID[u.ID] = u
}

func (d UserDirectory) Get(id string) (User, bool) {
	u, ok := d.byID[id]
	return u, ok
}

// FindByUsername returns the first user, in insertion order, with exactly this username.
func (d UserDirectory) FindByUsername(username string) (User, bool) {
	for _, id := range d.order {
		if u := d.byID[id]; u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

func (d UserDirectory) Len() int {
	return len(d.order)
}

// All returns users in insertion order.
func (d UserDirectory) All() []User {
	users := make([]User, 0, len(d.order))
	for _, id := range d.order {
		users = append(users, d.byID[id])
	}
	return users
}

func (d UserDirectory) Clone() UserDirectory {
	c := UserDirectory{
		order: append([]string(nil), d.order...),
		byID:  make(map[string]User, len(d.byID)),
	}
	for k, v := range d.byID {
		c.byID[k] = v
	}
	return c
}

func (d UserDirectory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *UserDirectory) UnmarshalJSON(data []byte) error {
	*d = NewUserDirectory()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("users: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("users: expected string key, got %v", tok)
		}
		var u User
		if err := dec.Decode(&u); err != nil {
			return fmt.Errorf("users: decoding %q: %w", id, err)
		}
		u.ID = id
		d.Add(u)
	}
	_, err = dec.Token()
	return err
}

func (d UserDirectory) MarshalBSON() ([]byte, error) {
	doc := make(bson.D, 0, len(d.order))
	for _, id := range d.order {
		doc = append(doc, bson.E{Key: id, Value: bson.D{{Key: "username", Value: d.byID[id].Username}}})
	}
	return bson.Marshal(doc)
}

func (d *UserDirectory) UnmarshalBSON(data []byte) error {
	*d = NewUserDirectory()
	elems, err := bson.Raw(data).Elements()
	if err != nil {
		return err
	}
	for _, elem := range elems {
		sub, ok := elem.Value().DocumentOK()
		if !ok {
			return fmt.Errorf("users: %q is not a document", elem.Key())
		}
		username, _ := sub.Lookup("username").StringValueOK()
		d.Add(User{ID: elem.Key(), Username: username})
	}
	return nil
}
