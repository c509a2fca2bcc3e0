// Package model defines the data types shared across the mirror engine.
//
// A [Task] names one remote artifact to fetch plus the course metadata used
// to place it. Tasks are scheduled in priority groups; [ContentType] supplies
// the default priority when a task carries none.
//
// Every task ends in exactly one [Outcome]: published, skipped, or failed
// with a [FailureKind]. A [Report] folds outcomes into run totals and is
// persisted as a JSON summary next to the mirrored artifacts.
//
// # Task Plan
//
// Plans are JSON arrays of task records, loaded with [LoadPlan]:
//
//	[
//	  {
//	    "content_type": "files",
//	    "source_ref": "/files/1042/download",
//	    "name": "syllabus.pdf",
//	    "number": 1,
//	    "course_code": "CS101",
//	    "course_name": "Intro to Computing",
//	    "semester": "First",
//	    "year": "2026",
//	    "expected_size": 482133
//	  }
//	]
//
// Missing IDs are generated; unknown content types are rejected.
package model
