package model

import "testing"

func TestOutlineIsEmpty(t *testing.T) {
	var nilOutline *CourseOutline
	if !nilOutline.IsEmpty() {
		t.Fatal("nil outline must be empty")
	}
	if !(&CourseOutline{Title: "   "}).IsEmpty() {
		t.Fatal("whitespace title with no sections must be empty")
	}
	if (&CourseOutline{Title: "Go"}).IsEmpty() {
		t.Fatal("titled outline must not be empty")
	}
	if (&CourseOutline{Sections: []CourseSection{{Title: "Intro"}}}).IsEmpty() {
		t.Fatal("outline with sections must not be empty")
	}
}

func TestNewCourseFromOutline(t *testing.T) {
	t.Run("uses outline title", func(t *testing.T) {
		o := &CourseOutline{Title: "Go Basics", Description: "d", Sections: []CourseSection{{Title: "Intro"}}}
		c := NewCourseFromOutline(o, SourceTypeTopic, "go-basics", "", "user-1")
		if c.ID == "" {
			t.Fatal("course ID must be set")
		}
		if c.Title != "Go Basics" || c.CreatedBy != "user-1" {
			t.Fatalf("unexpected course: %+v", c)
		}
		if !c.IsPublic {
			t.Fatal("generated courses must be public")
		}
	})

	t.Run("falls back to source id for blank title", func(t *testing.T) {
		o := &CourseOutline{Title: "  ", Sections: []CourseSection{{Title: "Intro"}}}
		c := NewCourseFromOutline(o, SourceTypeYouTube, "dQw4w9WgXcQ", "https://youtu.be/x", "user-1")
		if c.Title != "dQw4w9WgXcQ" {
			t.Fatalf("want source id as title, got %q", c.Title)
		}
	})
}

func TestNotificationConstructors(t *testing.T) {
	ok := NewCourseReadyNotification("user-1", "course-9")
	if ok.Type != NotificationTypeSuccess || ok.Link != "/courses/course-9" || ok.Read {
		t.Fatalf("unexpected notification: %+v", ok)
	}

	fail := NewGenerationFailedNotification("user-1", "")
	if fail.Type != NotificationTypeError || fail.Message == "" {
		t.Fatalf("unexpected notification: %+v", fail)
	}

	custom := NewGenerationFailedNotification("user-1", "quota exceeded")
	if custom.Message != "quota exceeded" {
		t.Fatalf("want custom reason, got %q", custom.Message)
	}
}
