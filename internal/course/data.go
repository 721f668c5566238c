package course

// DefaultCourses the compiled-in catalog dataset
var DefaultCourses = []Course{
	{
		ID:           "1",
		Title:        "Python Fundamentals",
		Description:  "Learn fundamentals python such as functions, looping, types.",
		StudentCount: 1000,
		Sections: []Section{
			{
				ID:    "s1",
				Title: "Basic Procedure",
				Subsections: []Subsection{
					{ID: "ss1", Title: "Concept", DurationMinutes: 5},
					{
						ID:            "ss2",
						Title:         "Practice",
						QuestionCount: 4,
						Questions: []Question{
							{
								ID:   "1",
								Type: MultipleChoice,
								Text: `What is the primary purpose of Python's "if __name__ == '__main__'" statement?`,
								Options: []string{
									"To define the main function",
									"To check if the module is being run directly",
									"To import the main module",
									"To start the Python interpreter",
								},
								CorrectAnswer: 1,
							},
							{
								ID:   "2",
								Type: MultipleChoice,
								Text: "Which of the following is the correct way to create a list in Python?",
								Options: []string{
									"{1, 2, 3}",
									"[1, 2, 3]",
									"(1, 2, 3)",
									"<1, 2, 3>",
								},
								CorrectAnswer: 1,
							},
							{
								ID:   "3",
								Type: MultipleChoice,
								Text: "What is the output of print(type([]))?",
								Options: []string{
									"<class 'list'>",
									"<class 'array'>",
									"<class 'tuple'>",
									"<class 'set'>",
								},
								CorrectAnswer: 0,
							},
							{
								ID:   "4",
								Type: MultipleChoice,
								Text: "Which method is used to add an element to the end of a list?",
								Options: []string{
									"add()",
									"append()",
									"extend()",
									"insert()",
								},
								CorrectAnswer: 1,
							},
						},
					},
				},
			},
		},
	},
	{
		ID:           "2",
		Title:        "Web Development with React",
		Description:  "Web development using React",
		StudentCount: 200,
		Sections:     []Section{},
	},
	{
		ID:           "3",
		Title:        "Object-oriented Programming",
		Description:  "Current industry standard is using java language, learn about inheritance, class, object, etc.",
		StudentCount: 350,
		Sections:     []Section{},
	},
}

// DefaultCatalog build the catalog from the compiled-in dataset
func DefaultCatalog() (*Catalog, error) {
	return NewCatalog(DefaultCourses)
}
